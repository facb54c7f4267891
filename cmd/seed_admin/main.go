package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/raushankrgupta/temple-connect/config"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"github.com/raushankrgupta/temple-connect/store/mongostore"
	"github.com/raushankrgupta/temple-connect/utils"
)

// seed_admin creates the first admin, or promotes an existing account.
func main() {
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password (min 6 characters)")
	name := flag.String("name", "Admin", "display name")
	phone := flag.String("phone", "", "optional phone number")
	flag.Parse()

	if *email == "" || len(*password) < 6 {
		log.Fatal("usage: seed_admin -email <email> -password <password> [-name <name>] [-phone <phone>]")
	}

	config.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := mongostore.Connect(ctx, config.MongoURI, config.DBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Disconnect(context.Background()) //nolint:errcheck
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	user, created, err := seed(ctx, db.Store().Accounts, *email, *password, *name, utils.NormalizePhone(*phone))
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}
	if created {
		fmt.Printf("Created admin %s (%s)\n", user.Email, user.ID.Hex())
	} else {
		fmt.Printf("Promoted %s (%s) to admin\n", user.Email, user.ID.Hex())
	}
}

func seed(ctx context.Context, accounts store.Accounts, email, password, name, phone string) (*models.User, bool, error) {
	email = utils.NormalizeEmail(email)
	now := time.Now().UTC()

	user, err := accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		user = nil
	default:
		return nil, false, err
	}

	created := user == nil
	if created {
		user = &models.User{Name: name, Email: email, Phone: phone, CreatedAt: now}
	}
	if err := user.SetPassword(password); err != nil {
		return nil, false, err
	}
	user.Role = models.RoleAdmin
	user.Status = models.StatusActive
	user.IsActive = true
	user.UpdatedAt = now

	if created {
		return user, true, accounts.Create(ctx, user)
	}
	return user, false, accounts.Update(ctx, user)
}
