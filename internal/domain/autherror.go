package domain

// AuthErrorCode identifies a known authentication-flow failure reason
// carried back from the provider or the callback handler.
type AuthErrorCode string

const (
	AuthErrServer             AuthErrorCode = "server_error"
	AuthErrOAuthLoginFailed   AuthErrorCode = "oauth_login_failed"
	AuthErrNetwork            AuthErrorCode = "network_error"
	AuthErrCredentialsSignin  AuthErrorCode = "CredentialsSignin"
	AuthErrOAuthSignin        AuthErrorCode = "OAuthSignin"
	AuthErrOAuthCallback      AuthErrorCode = "OAuthCallback"
	AuthErrOAuthCreateAccount AuthErrorCode = "OAuthCreateAccount"
	AuthErrEmailCreateAccount AuthErrorCode = "EmailCreateAccount"
	AuthErrCallback           AuthErrorCode = "Callback"
	AuthErrAccountNotLinked   AuthErrorCode = "OAuthAccountNotLinked"
	AuthErrEmailSignin        AuthErrorCode = "EmailSignin"
	AuthErrSessionRequired    AuthErrorCode = "SessionRequired"
	AuthErrDefault            AuthErrorCode = "default"
)

var authErrorMessages = map[AuthErrorCode]string{
	AuthErrServer:             "Something went wrong on our end. Please try again later.",
	AuthErrOAuthLoginFailed:   "We could not sign you in with that provider. Please try again.",
	AuthErrNetwork:            "A network error occurred. Check your connection and try again.",
	AuthErrCredentialsSignin:  "Invalid email or password.",
	AuthErrOAuthSignin:        "Could not start the sign-in flow with the provider.",
	AuthErrOAuthCallback:      "The provider returned an unexpected response.",
	AuthErrOAuthCreateAccount: "Could not create an account from that provider profile.",
	AuthErrEmailCreateAccount: "Could not create an account with that email address.",
	AuthErrCallback:           "Something went wrong while completing sign-in.",
	AuthErrAccountNotLinked:   "That email is already linked to a different sign-in method.",
	AuthErrEmailSignin:        "The sign-in email could not be sent.",
	AuthErrSessionRequired:    "Please sign in to access this page.",
	AuthErrDefault:            "Unable to sign in. Please try again.",
}

// AuthErrorMessage returns the user-facing message for code. Codes
// outside the known set resolve to the default message.
func AuthErrorMessage(code AuthErrorCode) string {
	if msg, ok := authErrorMessages[code]; ok {
		return msg
	}
	return authErrorMessages[AuthErrDefault]
}
