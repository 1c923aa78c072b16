package models

const (
	// SystemPrompt is the fixed instruction prepended to every conversation.
	SystemPrompt = "You are a helpful assistant that answers questions using the provided sources."

	// CitationPrompt tells the model how to use retrieved sources.
	CitationPrompt = "Use the numbered sources below to answer. Cite them as [#n]. " +
		"Prefer information from the sources over your own knowledge. " +
		"If the sources are insufficient to answer, say you don't know."

	// NoSourcesPlaceholder is sent in place of the sources block when
	// retrieval came back empty.
	NoSourcesPlaceholder = "No sources found for this question."

	// EmptyReplyGlyph is returned when the completion response is
	// well-formed but contains no text.
	EmptyReplyGlyph = "…"

	// ApologeticReply is the only user-visible text on terminal chat
	// failure. Raw upstream errors never reach the user.
	ApologeticReply = "Sorry, something went wrong while answering. Please try again in a moment."
)
