package models

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
	NoticeInfo    NoticeLevel = "info"
)

// Title is the banner heading a view shows for the level.
func (l NoticeLevel) Title() string {
	switch l {
	case NoticeSuccess:
		return "Success"
	case NoticeWarning:
		return "Warning"
	case NoticeError:
		return "Error"
	default:
		return "Info"
	}
}
