package model

// UserStatus represents user status
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User represents an authenticated principal. The vault only needs the id
// and email pair produced by token verification; the password hash exists
// for the local login surface.
type User struct {
	BaseModel
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Status       UserStatus `gorm:"type:varchar(16);default:'active'" json:"status"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
