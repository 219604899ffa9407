package model

type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"nombre"`
	Email        string `json:"correo"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"rol"`
}
