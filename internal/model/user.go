package model

// RegisterRequest : тело запроса регистрации
type RegisterRequest struct {
	Username  string  `json:"username" example:"alice"`
	Email     string  `json:"email" example:"alice@example.com"`
	Password  string  `json:"password" example:"P@ssw0rd!"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// AuthenticateRequest : тело запроса на аутентификацию
type AuthenticateRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"P@ssw0rd123"`
}

// RefreshTokenRequest : запрос на обновление пары токенов
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// PasswordResetRequest : запрос письма со ссылкой на сброс пароля
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirm : установка нового пароля по токену из письма
type PasswordResetConfirm struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// EmailVerificationRequest : подтверждение e-mail кодом из письма
type EmailVerificationRequest struct {
	Code string `json:"code"`
}

// ValidationRule : правило валидации поля формы, отдаётся сервером
type ValidationRule struct {
	Field     string `json:"field"`
	Pattern   string `json:"pattern,omitempty"`
	MinLength int    `json:"minLength,omitempty"`
	MaxLength int    `json:"maxLength,omitempty"`
	Required  bool   `json:"required"`
}
