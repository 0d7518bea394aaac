package users

import "time"

type User struct {
	ID        int64
	TgID      int64
	Username  string
	FirstName string
	CreatedAt time.Time
}
