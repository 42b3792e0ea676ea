package eduAuth_test

import (
	"context"
	"errors"
	"fmt"

	eduAuth "github.com/MrEthical07/eduAuth"
)

// ExampleNew builds a client that keeps its session in a directory.
func ExampleNew() {
	cfg := eduAuth.DefaultConfig()
	cfg.API.BaseURL = "https://learn.example.com/api"
	cfg.Storage.Backend = eduAuth.StorageFile
	cfg.Storage.Path = "/var/lib/eduauth"

	client, err := eduAuth.New().WithConfig(cfg).Build(context.Background())
	if err != nil {
		return
	}
	defer client.Close()
}

// ExampleClient_Login shows how to tell field errors from server errors.
func ExampleClient_Login() {
	var client *eduAuth.Client
	_, err := client.Login(context.Background(), eduAuth.LoginInput{Email: "ada@school.test", Password: "Secret123"})

	var fe eduAuth.FieldErrors
	switch {
	case errors.As(err, &fe):
		for _, field := range fe.Fields() {
			fmt.Println(field, fe[field])
		}
	case errors.Is(err, eduAuth.ErrInvalidCredentials):
		fmt.Println(eduAuth.ErrorMessage(err))
	case err != nil:
		fmt.Println(eduAuth.ErrorCode(err), eduAuth.ErrorMessage(err))
	}
}

// ExampleClient_Subscribe reacts to the loading flag and session changes.
func ExampleClient_Subscribe() {
	var client *eduAuth.Client
	unsubscribe := client.Subscribe(func(s eduAuth.State) {
		if s.IsLoading {
			fmt.Println("working...")
		}
	})
	defer unsubscribe()
}
