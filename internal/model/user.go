package model

import "time"

// Role names carried in the access token "role" claim.
const (
    RoleUser  = "USER"
    RoleClub  = "CLUB"
    RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table.  PasswordHash is a bcrypt digest and is never serialized.
//
// Fields:
//  ID           – primary key (UUID string).
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  FirstName    – given name shown on tickets and at check-in.
//  LastName     – family name.
//  Role         – USER, CLUB or ADMIN.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           string    `json:"id"`         // users.id
    Email        string    `json:"email"`      // users.email
    PasswordHash string    `json:"-"`          // users.password_hash
    FirstName    string    `json:"first_name"` // users.first_name
    LastName     string    `json:"last_name"`  // users.last_name
    Role         string    `json:"role"`       // users.role
    CreatedAt    time.Time `json:"created_at"` // users.created_at
    UpdatedAt    time.Time `json:"updated_at"` // users.updated_at
}

// UserSummary is the display subset of a user.
type UserSummary struct {
    ID        string `json:"id"`
    FirstName string `json:"first_name"`
    LastName  string `json:"last_name"`
    Email     string `json:"email"`
}

// FullName joins first and last name.
func (u UserSummary) FullName() string {
    switch {
    case u.FirstName == "":
        return u.LastName
    case u.LastName == "":
        return u.FirstName
    }
    return u.FirstName + " " + u.LastName
}

// Summary returns the display subset of u.
func (u User) Summary() UserSummary {
    return UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}
