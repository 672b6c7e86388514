package users

import "github.com/nahuelcoria/tienda-backend/internal/orders"

// User is the durable account record, serialized as JSON into the
// key/value store under the user's email. Password holds the encoded
// argon2id hash; legacy records imported from the previous storefront
// may still hold plaintext until their first successful login.
type User struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Phone     string         `json:"phone,omitempty"`
	CreatedAt string         `json:"created_at"`
	Orders    []orders.Order `json:"orders"`
}

// Profile is the user shape safe to hand to callers. It never carries
// the password field.
type Profile struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Phone     string         `json:"phone,omitempty"`
	CreatedAt string         `json:"created_at"`
	Orders    []orders.Order `json:"orders"`
}

// Profile projects the record into its external shape.
func (u *User) Profile() Profile {
	ordersCopy := make([]orders.Order, len(u.Orders))
	copy(ordersCopy, u.Orders)
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
		Orders:    ordersCopy,
	}
}

// RegisterInput is the validated payload to create an account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// UpdateInput holds optional profile mutations; nil fields are untouched.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
}
