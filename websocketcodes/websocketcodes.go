package websocketcodes

const (
	// StatusSuccess is given when the request was carried out.
	StatusSuccess = "SUCCESS"

	// StatusFailure is given when the request failed for a reason worth retrying.
	StatusFailure = "FAILURE"

	// StatusEndpointNotValid is given when the message is using an unsupported endpoint.
	StatusEndpointNotValid = "ENDPOINT_NOT_VALID"

	// StatusEndpointUnauthorized is given when the user is not allowed to perform the action.
	StatusEndpointUnauthorized = "ENDPOINT_UNAUTHORIZED"

	// StatusConversationNotFound is given when the conversation does not exist (or no longer exists).
	StatusConversationNotFound = "CONVERSATION_NOT_FOUND"

	// StatusMessageNotFound is given when deleting a message that is not in the conversation.
	StatusMessageNotFound = "MESSAGE_NOT_FOUND"

	// StatusEmptyMessage is given when the text to send is empty after trimming.
	StatusEmptyMessage = "EMPTY_MESSAGE"

	// StatusConfirmationRequired is given when a destructive request was sent without confirm set.
	StatusConfirmationRequired = "CONFIRMATION_REQUIRED"

	// StatusUpdate is the status of messages pushed by the server without a request.
	StatusUpdate = "UPDATE"
)
