package auth

// Decision is the outcome of a guard check. When Allowed is false the caller
// should show the login view and, after a successful login, navigate to
// ReturnTo.
type Decision struct {
	Allowed  bool
	Redirect string // view to show instead, empty when allowed
	ReturnTo string // where to resume after login
}

// Guard gates navigation to protected views on an authenticated session.
// It shares the Gate, so a login or logout is visible to the guard
// immediately.
type Guard struct {
	gate *Gate
}

// NewGuard wraps the gate for navigation checks.
func NewGuard(gate *Gate) *Guard {
	return &Guard{gate: gate}
}

// LoginView is where unauthenticated navigation is redirected.
const LoginView = "login"

// Allow checks whether the session may enter dest. Denied navigations
// remember dest so the caller can resume it after login.
func (g *Guard) Allow(dest string) Decision {
	if g.gate.IsAuthenticated() {
		return Decision{Allowed: true}
	}
	return Decision{
		Allowed:  false,
		Redirect: LoginView,
		ReturnTo: dest,
	}
}
