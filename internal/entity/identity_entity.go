package entity

type AuthState string

const (
	AuthStateUnauthenticated AuthState = "unauthenticated"
	AuthStateAuthenticated   AuthState = "authenticated"
)

// Identity is the display identity decoded from the access credential.
// It carries no authority; the backend validates every request.
type Identity struct {
	Username string `json:"username"`
}
