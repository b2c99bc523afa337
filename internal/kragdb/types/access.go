package types

type AccessRequest struct {
	UserID      int32  `json:"user_id"`
	PassID      *int64 `json:"pass_id,omitempty"`      // defaults to the user's first pass
	ModuleID    string `json:"module_id,omitempty"`    // reader or door, recorded only
	RequestedAt string `json:"requested_at,omitempty"` // optional client timestamp
}

type AccessResponse struct {
	OK           bool   `json:"ok"`
	Granted      bool   `json:"granted"`
	Method       string `json:"method,omitempty"`
	Reason       string `json:"reason"`
	UserID       int32  `json:"user_id"`
	PassID       int64  `json:"pass_id"`
	SessionsLeft uint32 `json:"sessions_left"`
	ServerTime   string `json:"server_time"`
}
