package users

// UpdateProfilePayload is the body of PUT /profile. Only these three fields
// are accepted; anything else is rejected by the binder.
type UpdateProfilePayload struct {
	Name   *string `json:"name" mod:"trim" validate:"omitempty,min=1,max=100"`
	Mobile *string `json:"mobile" mod:"trim" validate:"omitempty,mobile"`
	Dob    *string `json:"dob" mod:"trim" validate:"omitempty,date"`
}

type AvatarResponse struct {
	ProfilePicture         *string `json:"profilePicture"`
	ProfilePictureBlurhash *string `json:"profilePictureBlurhash"`
}
