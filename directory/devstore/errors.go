package devstore

import "fmt"

type (
	UserExists struct {
		Usuario string
	}

	UserNotFound struct {
		Usuario string
	}
)

func (u UserExists) Error() string {
	return fmt.Sprintf("user %v already exists", u.Usuario)
}

func (u UserNotFound) Error() string {
	return fmt.Sprintf("user %v not found", u.Usuario)
}
