package types

// AddSessionsRequest tops up the session pass of a user pass.
type AddSessionsRequest struct {
	Sessions uint32 `json:"sessions"`
}

// ExtendTimeRequest moves the time pass expiry. Until wins over Days.
// Days counts from the later of now and the current expiry.
type ExtendTimeRequest struct {
	Until string `json:"until,omitempty"`
	Days  int    `json:"days,omitempty"`
}

type CountResponse struct {
	OK    bool  `json:"ok"`
	Count int64 `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CreateUserRequest carries a plaintext password; it is hashed before it
// reaches a store. Permissions uses perm.Parse syntax, e.g. "ADMIN|PASS_READ".
type CreateUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Number      *int64 `json:"number,omitempty"`
	Password    string `json:"password"`
	Permissions string `json:"permissions,omitempty"`
}

// UpdateUserRequest changes every field that is set.
type UpdateUserRequest struct {
	Username    *string `json:"username,omitempty"`
	Email       *string `json:"email,omitempty"`
	Number      *int64  `json:"number,omitempty"`
	Password    *string `json:"password,omitempty"`
	Permissions *string `json:"permissions,omitempty"`
}

// IssuePassRequest creates a pass. Expiry is empty for no time pass.
type IssuePassRequest struct {
	UserID   int32  `json:"user_id"`
	Expiry   string `json:"expiry,omitempty"`
	Sessions uint32 `json:"sessions,omitempty"`
}
