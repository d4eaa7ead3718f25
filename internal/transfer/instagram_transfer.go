package transfer

import "encoding/json"

type InstagramToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type InstagramUserInfo struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type InstagramErrorResponse struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		IsTransient  bool   `json:"is_transient"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

// Decode unmarshals a raw JSON error body.
func Decode(body string, v any) error {
	return json.Unmarshal([]byte(body), v)
}

type InstagramShortToken struct {
	AccessToken string `json:"access_token"`
	UserID      int64  `json:"user_id"`
}
