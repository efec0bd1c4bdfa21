package config

import "os"

func IsDebug() bool {
	return os.Getenv("CRMCHAT_DEBUG") == "1"
}
