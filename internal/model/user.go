package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Buyers purchase tickets, organizers publish events and scan
// tickets at the door, and admins resolve payment disputes.  The json
// tags are omitted because these structs are used internally by the
// repository layer; handlers define separate response types.
//
// Fields:
//  ID           - primary key identifier of the user.
//  Email        - unique email address.
//  PasswordHash - bcrypt hashed password.
//  DisplayName  - name shown on bookings and tickets.
//  Role         - role name (BUYER, ORGANIZER or ADMIN).
//  IsActive     - whether the account is active.
//  CreatedAt    - timestamp of creation.
//  UpdatedAt    - timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    DisplayName  string    // users.display_name
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// Role names accepted in the users.role column and in JWT role claims.
const (
    RoleBuyer     = "BUYER"
    RoleOrganizer = "ORGANIZER"
    RoleAdmin     = "ADMIN"
)
