// Package domain defines the core business entities of the job pipeline:
// jobs, their processing parameters, and generated quiz questions, along
// with the validation rules and state machine they obey.
package domain
