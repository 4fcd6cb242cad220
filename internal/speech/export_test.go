package speech

// Exports for testing.

// NewTestOpenAI creates an OpenAI engine over a mock client.
func NewTestOpenAI(client speechClient, opts ...OpenAIOption) *OpenAI {
	return NewOpenAI(nil, append([]OpenAIOption{withClient(client)}, opts...)...)
}

// ClassifyError exposes the OpenAI error mapping.
var ClassifyError = classifyError
