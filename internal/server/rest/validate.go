package rest

import (
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerValidationsOnce sync.Once

// registerValidations adds the "username" tag to gin's validator.
func registerValidations() {
	registerValidationsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return services.ValidUsername(fl.Field().String())
		})
	})
}
