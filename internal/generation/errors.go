package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when generation fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate content")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during generation")

	// ErrEmptyResult is returned when the model produced no usable output
	ErrEmptyResult = errors.New("language model returned an empty result")

	// ErrContentTooLong is returned when the input exceeds the model budget
	ErrContentTooLong = errors.New("content too long for analysis")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
