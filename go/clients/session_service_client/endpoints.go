package session_service_client

const (
	// API Endpoints, formatted with the session code
	CurrentQuestionEndpoint = "/sessions/%s/current-question"
	NextQuestionEndpoint    = "/sessions/%s/next-question"

	// Headers
	AuthorizationHeader = "Authorization"
	AcceptHeader        = "Accept"
)
