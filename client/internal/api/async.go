package api

import (
	"context"
	"sync"

	"github.com/maynagashev/idealvisual/models"
)

// UserCompletion получает результат операции, возвращающей пользователя.
// Ровно один из аргументов не nil.
type UserCompletion func(user *models.User, err error)

// Completion получает результат выхода. nil означает успех.
type Completion func(err error)

// Async выполняет операции клиента в отдельных горутинах и сообщает результат
// через completion ровно один раз. Completion вызывается не в горутине
// вызывающего кода, переключение контекста - забота вызывающей стороны.
type Async struct {
	client AccountClient
}

// NewAsync оборачивает клиент.
func NewAsync(client AccountClient) *Async {
	return &Async{client: client}
}

// Create запускает регистрацию.
func (a *Async) Create(ctx context.Context, user models.User, done UserCompletion) {
	goUser(done, func() (*models.User, error) {
		return a.client.Create(ctx, user)
	})
}

// Login запускает вход.
func (a *Async) Login(ctx context.Context, user models.User, done UserCompletion) {
	goUser(done, func() (*models.User, error) {
		return a.client.Login(ctx, user)
	})
}

// Update запускает изменение данных пользователя.
func (a *Async) Update(ctx context.Context, token string, user models.User, done UserCompletion) {
	goUser(done, func() (*models.User, error) {
		return a.client.Update(ctx, token, user)
	})
}

// Logout запускает выход.
func (a *Async) Logout(ctx context.Context, token string, done Completion) {
	fire := onceCompletion(done)
	go func() {
		fire(a.client.Logout(ctx, token))
	}()
}

func goUser(done UserCompletion, call func() (*models.User, error)) {
	fire := onceUserCompletion(done)
	go func() {
		user, err := call()
		if err != nil {
			user = nil
		} else if user == nil {
			err = ErrNoData
		}
		fire(user, err)
	}()
}

// onceUserCompletion защищает completion от повторного вызова. nil допустим.
func onceUserCompletion(done UserCompletion) UserCompletion {
	var once sync.Once
	return func(user *models.User, err error) {
		once.Do(func() {
			if done != nil {
				done(user, err)
			}
		})
	}
}

func onceCompletion(done Completion) Completion {
	var once sync.Once
	return func(err error) {
		once.Do(func() {
			if done != nil {
				done(err)
			}
		})
	}
}
