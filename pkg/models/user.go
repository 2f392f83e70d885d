package models

// User is the profile record for an identity-provider subject. The userId
// is the provider's subject identifier persisted verbatim.
type User struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Scope
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Item builds the base-table item with its GSI1 projection under the
// shared USERS partition, sorted by creation time.
func (u *User) Item() (map[string]interface{}, error) {
	return itemize(u, map[string]interface{}{
		AttrPK:     UserPK(u.UserID),
		AttrSK:     SKMeta,
		AttrGSI1PK: PartitionUsers,
		AttrGSI1SK: PrefixUser + u.CreatedAt,
	})
}

// UserFromItem decodes a user record from a table item.
func UserFromItem(item map[string]interface{}) (*User, error) {
	var u User
	if err := decodeItem(item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Actor returns the access-policy view of the user.
func (u *User) Actor() Actor {
	return Actor{UserID: u.UserID, Role: u.Role, Scope: u.Scope}
}
