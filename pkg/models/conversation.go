package models

// Conversation is the metadata record of a chat thread. Totals are rolled
// up from the assistant messages and must equal their sums after any
// successful turn.
type Conversation struct {
	ConversationID string `json:"conversationId"`
	Title          string `json:"title"`
	UserID         string `json:"userId"`
	Scope
	ModelID           string  `json:"modelId"`
	CreatedAt         string  `json:"createdAt"`
	UpdatedAt         string  `json:"updatedAt"`
	MessageCount      int     `json:"messageCount"`
	TotalInputTokens  int     `json:"totalInputTokens"`
	TotalOutputTokens int     `json:"totalOutputTokens"`
	TotalCost         float64 `json:"totalCost"`
}

// Item builds the metadata item with the owner projection sorted by last
// update, so the user's conversation list reads most-recent-first.
func (c *Conversation) Item() (map[string]interface{}, error) {
	return itemize(c, map[string]interface{}{
		AttrPK:     ConvPK(c.ConversationID),
		AttrSK:     SKMeta,
		AttrGSI1PK: UserPK(c.UserID),
		AttrGSI1SK: PrefixConv + c.UpdatedAt,
	})
}

// ConversationFromItem decodes a conversation record from a table item.
func ConversationFromItem(item map[string]interface{}) (*Conversation, error) {
	var c Conversation
	if err := decodeItem(item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Message is one turn half inside a conversation's partition. User messages
// carry no token fields; assistant messages carry tokens and cost.
type Message struct {
	MessageID    string  `json:"messageId"`
	Role         string  `json:"role"`
	Content      string  `json:"content"`
	ModelID      string  `json:"modelId,omitempty"`
	InputTokens  int     `json:"inputTokens,omitempty"`
	OutputTokens int     `json:"outputTokens,omitempty"`
	Cost         float64 `json:"cost,omitempty"`
	CreatedAt    string  `json:"createdAt"`
}

// Item builds the message item inside the conversation's partition.
func (m *Message) Item(conversationID string) (map[string]interface{}, error) {
	return itemize(m, map[string]interface{}{
		AttrPK: ConvPK(conversationID),
		AttrSK: MsgSK(m.CreatedAt, m.MessageID),
	})
}

// MessageFromItem decodes a message record from a table item.
func MessageFromItem(item map[string]interface{}) (*Message, error) {
	var m Message
	if err := decodeItem(item, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
