package models

// Form payloads submitted through the relay. The relay never re-validates
// them, the validate tags are checked by callers before submission.

// LoginForm is posted to /api/auth/login.
type LoginForm struct {
	Email    string `json:"email" yaml:"email" validate:"required,email,max=30"`
	Password string `json:"password" yaml:"password" validate:"required,min=6,max=50"`
}

// RegisterForm is posted to /api/auth/register.
type RegisterForm struct {
	FirstName string `json:"firstName" yaml:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" yaml:"lastName" validate:"required,max=50"`
	Email     string `json:"email" yaml:"email" validate:"required,email,max=30"`
	Password  string `json:"password" yaml:"password" validate:"required,min=6,max=50"`
}

// ResetPasswordForm starts the password reset flow.
type ResetPasswordForm struct {
	Email string `json:"email" yaml:"email" validate:"required,email,max=30"`
}

// ResetPasswordConfirmForm completes the password reset flow.
type ResetPasswordConfirmForm struct {
	Token              string `json:"token" yaml:"token" validate:"required"`
	NewPassword        string `json:"newPassword" yaml:"newPassword" validate:"required,min=6,max=50"`
	ConfirmNewPassword string `json:"confirmNewPassword" yaml:"confirmNewPassword" validate:"required,eqfield=NewPassword"`
}

// MovieVersion is a language/format pair a movie is shown in.
type MovieVersion struct {
	Language string `json:"language" yaml:"language" validate:"required"`
	Format   string `json:"format" yaml:"format" validate:"required"`
}

// MovieForm is the catalog movie payload.
type MovieForm struct {
	MovieID       string         `json:"movieId,omitempty" yaml:"movieId" validate:"omitempty,uuid"`
	Title         string         `json:"title" yaml:"title" validate:"required,max=100"`
	OriginalTitle string         `json:"originalTitle" yaml:"originalTitle" validate:"required,max=100"`
	ReleaseDate   string         `json:"releaseDate" yaml:"releaseDate" validate:"required,datetime=2006-01-02"`
	DurationMin   string         `json:"durationMin" yaml:"durationMin" validate:"required,numeric,max=3"`
	Synopsis      string         `json:"synopsis" yaml:"synopsis" validate:"required,max=500"`
	PosterURL     string         `json:"posterUrl" yaml:"posterUrl" validate:"required,url"`
	TrailerURL    string         `json:"trailerUrl" yaml:"trailerUrl" validate:"required,url"`
	AgeRating     string         `json:"ageRating" yaml:"ageRating" validate:"required,max=10"`
	Genres        []string       `json:"genres" yaml:"genres" validate:"required,min=1,dive,required"`
	Versions      []MovieVersion `json:"versions" yaml:"versions" validate:"required,min=1,dive"`
	Private       bool           `json:"private,omitempty" yaml:"private"`
}

// GenreForm is the catalog genre payload.
type GenreForm struct {
	Name string `json:"name" yaml:"name" validate:"required,max=50"`
}
