package model

type RegisterRequest struct {
	Name     string `form:"nombre" binding:"required"`
	Email    string `form:"correo" binding:"required,email"`
	Password string `form:"contraseña" binding:"required"`
}

type LoginRequest struct {
	Email    string `form:"correo" binding:"required"`
	Password string `form:"contraseña" binding:"required"`
}
