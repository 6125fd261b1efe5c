package user

// UpdateProfileDTO is the transport shape for partial profile updates.
// Email and password changes go through dedicated auth endpoints.
type UpdateProfileDTO struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (d UpdateProfileDTO) Validate() error {
	if len(d.FirstName) > 150 {
		return ValidationError{Msg: "first_name must be at most 150 characters"}
	}
	if len(d.LastName) > 150 {
		return ValidationError{Msg: "last_name must be at most 150 characters"}
	}
	return nil
}
