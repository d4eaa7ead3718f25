package transfer

type TiktokError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

type TiktokUserResponse struct {
	Data struct {
		User struct {
			OpenID      string `json:"open_id"`
			DisplayName string `json:"display_name"`
			Username    string `json:"username"`
		} `json:"user"`
	} `json:"data"`
	Error TiktokError `json:"error"`
}

type TiktokPublishResponse struct {
	Data struct {
		PublishID string `json:"publish_id"`
	} `json:"data"`
	Error TiktokError `json:"error"`
}

type TiktokCreatorInfoResponse struct {
	Data struct {
		CreatorUsername         string   `json:"creator_username"`
		PrivacyLevelOptions     []string `json:"privacy_level_options"`
		CommentDisabled         bool     `json:"comment_disabled"`
		DuetDisabled            bool     `json:"duet_disabled"`
		StitchDisabled          bool     `json:"stitch_disabled"`
		MaxVideoPostDurationSec int32    `json:"max_video_post_duration_sec"`
	} `json:"data"`
	Error TiktokError `json:"error"`
}

type TiktokVideoPostInfo struct {
	Title                 string `json:"title"`
	PrivacyLevel          string `json:"privacy_level"`
	DisableDuet           bool   `json:"disable_duet"`
	DisableComment        bool   `json:"disable_comment"`
	DisableStitch         bool   `json:"disable_stitch"`
	VideoCoverTimestampMs int    `json:"video_cover_timestamp_ms"`
	IsAIGC                bool   `json:"is_aigc"`
}

type TiktokPhotoPostInfo struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	PrivacyLevel   string `json:"privacy_level"`
	DisableComment bool   `json:"disable_comment"`
	AutoAddMusic   bool   `json:"auto_add_music"`
}

type TiktokVideoRequest struct {
	PostInfo   TiktokVideoPostInfo `json:"post_info"`
	SourceInfo struct {
		Source   string `json:"source"`
		VideoURL string `json:"video_url"`
	} `json:"source_info"`
}

type TiktokPhotoRequest struct {
	PostInfo   TiktokPhotoPostInfo `json:"post_info"`
	SourceInfo struct {
		Source          string   `json:"source"`
		PhotoCoverIndex int      `json:"photo_cover_index"`
		PhotoImages     []string `json:"photo_images"`
	} `json:"source_info"`
	PostMode  string `json:"post_mode"`
	MediaType string `json:"media_type"`
}

type TiktokTokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	OpenID           string `json:"open_id"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	RefreshToken     string `json:"refresh_token"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`
}
