package dto

// NotificationQuery captures GET /notifications query parameters as sent by the client.
// Values stay strings so that malformed input is reported instead of silently zeroed.
type NotificationQuery struct {
	IsRead string `form:"isRead" validate:"omitempty,oneof=true false"`
	Limit  string `form:"limit" validate:"omitempty,number"`
	Skip   string `form:"skip" validate:"omitempty,number"`
}

// NotificationIDsRequest is the body of the bulk read and bulk delete routes.
type NotificationIDsRequest struct {
	NotificationIDs []string `json:"notificationIDs" validate:"required,min=1,dive,required"`
}

// ModifiedCountResponse reports how many notifications changed.
type ModifiedCountResponse struct {
	ModifiedCount int64 `json:"modifiedCount"`
}

// DeletedCountResponse reports how many notifications were removed.
type DeletedCountResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}

// UnreadCountResponse is returned by GET /notifications/unread-count.
type UnreadCountResponse struct {
	Count int `json:"count"`
}
