package model

// Tokens содержит пару access и refresh токенов
// Значение неизменяемое: новая пара всегда целиком заменяет старую
type Tokens struct {
	// Access токен (JWT)
	// example: eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"accessToken"`

	// Refresh токен (для получения новой пары)
	// example: vcSi0369y1I62wOpxZFpgZ...
	RefreshToken string `json:"refreshToken"`
}

func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// AuthenticatedUser : личность пользователя, полученная из claims access токена в момент сохранения
type AuthenticatedUser struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	IsEmailVerified bool    `json:"isEmailVerified"`
	FirstName       *string `json:"firstName,omitempty"`
	LastName        *string `json:"lastName,omitempty"`
	AccessToken     string  `json:"accessToken"`
	RefreshToken    string  `json:"refreshToken"`
}

func (u *AuthenticatedUser) Tokens() Tokens {
	return Tokens{AccessToken: u.AccessToken, RefreshToken: u.RefreshToken}
}

// DisplayName : имя для вывода в консоль
func (u *AuthenticatedUser) DisplayName() string {
	switch {
	case u.FirstName != nil && u.LastName != nil:
		return *u.FirstName + " " + *u.LastName
	case u.FirstName != nil:
		return *u.FirstName
	default:
		return u.Username
	}
}

// Rotation : результат одного обращения к /user/refresh-token
// Consumed - refresh токен, который был потрачен, Issued - выданная взамен пара
type Rotation struct {
	Consumed string
	Issued   Tokens
}
