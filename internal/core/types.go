package core

import "time"

const (
	AppName          = "crmchat"
	AppUserAgent     = "CRMChat/0.1"
	AppRepositoryURL = "https://github.com/sandevgo/crmchat"
	AppVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// OriginDB marks answers resolved directly from storage, so callers can
// distinguish deterministic answers from generated ones.
const OriginDB = "tool:db"

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Model tiers, lowest to highest quality/cost.
const (
	TierLight  = "light"
	TierMedium = "medium"
	TierHigh   = "high"
)

// Contact is the CRM identity header. The chat core only reads it; the
// ingestion pipeline owns its lifecycle.
type Contact struct {
	ID             string     `json:"id"`
	ExternalID     string     `json:"external_id"`
	Name           string     `json:"name,omitempty"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Company        string     `json:"company,omitempty"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
}

// ConvMessage is one customer-facing conversation turn, immutable once
// ingested. Ordered by OccurredAt descending with CreatedAt as tie-break.
type ConvMessage struct {
	ExternalID     string     `json:"external_message_id"`
	ConversationID string     `json:"conversation_id,omitempty"`
	Channel        string     `json:"channel,omitempty"`
	Direction      string     `json:"direction,omitempty"`
	Sender         string     `json:"sender,omitempty"`
	MessageType    string     `json:"message_type,omitempty"`
	Status         string     `json:"status,omitempty"`
	Body           string     `json:"body,omitempty"`
	OccurredAt     *time.Time `json:"occurred_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Order struct {
	OrderID            string     `json:"order_id"`
	ContactID          string     `json:"contact_id"`
	Status             string     `json:"status,omitempty"`
	OrderDate          string     `json:"order_date,omitempty"`
	OrderTotal         float64    `json:"order_total"`
	Tax                float64    `json:"tax,omitempty"`
	Tips               float64    `json:"tips,omitempty"`
	ShippingCost       float64    `json:"shipping_cost,omitempty"`
	InvoiceLink        string     `json:"invoice_link,omitempty"`
	InvoiceDescription string     `json:"invoice_description,omitempty"`
	ShippingAddressRaw string     `json:"shipping_address_raw,omitempty"`
	ShippingStreet1    string     `json:"shipping_street1,omitempty"`
	ShippingStreet2    string     `json:"shipping_street2,omitempty"`
	ShippingCity       string     `json:"shipping_city,omitempty"`
	ShippingState      string     `json:"shipping_state,omitempty"`
	ShippingZip        string     `json:"shipping_zip,omitempty"`
	TrackingNumber     string     `json:"tracking_number,omitempty"`
	TrackingLink       string     `json:"tracking_link,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// OfficialShippingAddress resolves an order's shipping address: the raw
// value wins; otherwise the parsed fields are joined with ", ", skipping
// empties. Returns "" when neither is present.
func (o Order) OfficialShippingAddress() string {
	if o.ShippingAddressRaw != "" {
		return o.ShippingAddressRaw
	}
	parts := make([]string, 0, 5)
	for _, p := range []string{o.ShippingStreet1, o.ShippingStreet2, o.ShippingCity, o.ShippingState, o.ShippingZip} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	result := parts[0]
	for _, p := range parts[1:] {
		result += ", " + p
	}
	return result
}

// ChatSession groups a sequence of chat turns for one contact.
type ChatSession struct {
	ID        string    `json:"id"`
	ContactID string    `json:"contact_id"`
	Title     string    `json:"title,omitempty"`
	ModelTier string    `json:"model_tier,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatTurn is one entry of a session's append-only log.
type ChatTurn struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one entry of a completion-API message list.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContactSummary is a cached daily digest of a contact's recent activity.
type ContactSummary struct {
	ContactID           string    `json:"contact_id"`
	SummaryDate         string    `json:"summary_date"`
	SummaryType         string    `json:"summary_type"`
	ConversationSummary string    `json:"conversation_summary"`
	OrderSummary        string    `json:"order_summary"`
	KeyTopics           []string  `json:"key_topics"`
	ActionItems         []string  `json:"action_items"`
	MessageCount        int       `json:"message_count"`
	OrderCount          int       `json:"order_count"`
	TotalOrderValue     float64   `json:"total_order_value"`
	ModelUsed           string    `json:"model_used"`
	InputTokensUsed     int       `json:"input_tokens_used"`
	CreatedAt           time.Time `json:"created_at"`
}

// UsageRecord is a best-effort accounting row for one model call.
type UsageRecord struct {
	Endpoint       string
	ContactID      string
	SessionID      string
	Model          string
	Tier           string
	InputTokens    int
	OutputTokens   int
	ResponseTimeMS int64
	Error          string
}
