package entity

type ChatUser struct {
	UserId     string
	Name       string
	Email      string
	ProfilePic *string
	Rooms      []string
}
