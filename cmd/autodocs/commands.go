package main

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/nomanstine/AutoDocs/auth"
	"github.com/nomanstine/AutoDocs/certificates"
	"github.com/nomanstine/AutoDocs/internal/config"
	"github.com/nomanstine/AutoDocs/internal/utils"
	"github.com/nomanstine/AutoDocs/session"
	"github.com/nomanstine/AutoDocs/users"
)

type app struct {
	ctx          context.Context
	config       config.Config
	session      *session.Store
	gate         session.Gate
	auth         *auth.Service
	users        *users.Client
	certificates *certificates.Client
}

func (a *app) dispatch(command string, args []string) error {
	switch command {
	case "register":
		return a.register(args)
	case "login":
		return a.login(args)
	case "logout":
		return a.logout()
	case "profile":
		return a.profile()
	case "update-profile":
		return a.updateProfile(args)
	case "passwd":
		return a.changePassword(args)
	case "services":
		return a.services()
	case "pay":
		return a.pay(args)
	case "generate":
		return a.generate(args)
	case "docs":
		return a.listDocuments()
	case "doc":
		return a.showDocument(args)
	case "revoke":
		return a.revokeDocument(args)
	case "verify":
		return a.verify(args)
	case "admin-users":
		return a.adminUsers(args)
	case "admin-user-update":
		return a.adminUserUpdate(args)
	case "admin-user-delete":
		return a.adminUserDelete(args)
	case "admin-transactions":
		return a.adminTransactions()
	case "help", "-h", "--help":
		usage()
		return nil
	}
	usage()
	return errors.Errorf("unknown command %q", command)
}

func (a *app) register(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	_ = fs.Parse(args)
	if *name == "" || *email == "" || *password == "" {
		return errors.New("register requires -name, -email and -password")
	}

	if err := a.auth.Register(a.ctx, *name, *email, *password); err != nil {
		return err
	}
	fmt.Println("Account created. Log in with 'autodocs login'.")
	return nil
}

func (a *app) login(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	_ = fs.Parse(args)
	if *email == "" || *password == "" {
		return errors.New("login requires -email and -password")
	}

	profile, err := a.auth.Login(a.ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %v <%v>\n", profile["name"], profile["email"])
	return nil
}

func (a *app) logout() error {
	if err := a.auth.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func (a *app) profile() error {
	return a.gate.Guard(func() error {
		profile, err := a.users.Me(a.ctx)
		if err != nil {
			return err
		}
		if err := a.session.UpdateProfile(profile); err != nil {
			return err
		}
		printProfile(profile)
		return nil
	})
}

func (a *app) updateProfile(args []string) error {
	fs := flag.NewFlagSet("update-profile", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	studentID := fs.String("student-id", "", "student id")
	regNo := fs.String("reg-no", "", "registration number")
	department := fs.String("department", "", "department")
	_ = fs.Parse(args)

	fields := session.Profile{}
	for field, value := range map[string]string{
		"name":       *name,
		"email":      *email,
		"student_id": *studentID,
		"reg_no":     *regNo,
		"department": *department,
	} {
		if value != "" {
			fields[field] = value
		}
	}
	if len(fields) == 0 {
		return errors.New("update-profile requires at least one field flag")
	}

	return a.gate.Guard(func() error {
		updated, err := a.users.UpdateMe(a.ctx, fields)
		if err != nil {
			return err
		}
		if err := a.session.UpdateProfile(updated); err != nil {
			return err
		}
		fmt.Println("Profile updated.")
		printProfile(updated)
		return nil
	})
}

func (a *app) changePassword(args []string) error {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	current := fs.String("current", "", "current password")
	next := fs.String("new", "", "new password")
	_ = fs.Parse(args)
	if *current == "" || *next == "" {
		return errors.New("passwd requires -current and -new")
	}

	return a.gate.Guard(func() error {
		if err := a.users.ChangePassword(a.ctx, *current, *next); err != nil {
			return err
		}
		fmt.Println("Password changed. You will need to log in again on other devices.")
		return nil
	})
}

func (a *app) services() error {
	services, err := a.certificates.Services(a.ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%-4s %-25s %8s  %s\n", "ID", "SERVICE", "AMOUNT", "DELIVERY (DAYS)")
	for _, service := range services {
		fmt.Printf("%-4d %-25s %8.0f  %s\n", service.ID, service.Title, service.Amount, service.DeliveryTime)
	}
	return nil
}

func (a *app) pay(args []string) error {
	fs := flag.NewFlagSet("pay", flag.ExitOnError)
	serviceID := fs.Int("service", 0, "service id")
	cardNumber := fs.String("card", "", "card number")
	cardName := fs.String("card-name", "", "name on card")
	expiry := fs.String("expiry", "", "card expiry (MM/YY)")
	cvv := fs.String("cvv", "", "card cvv")
	email := fs.String("email", "", "contact email")
	phone := fs.String("phone", "", "contact phone")
	_ = fs.Parse(args)
	if *serviceID == 0 || *cardNumber == "" {
		return errors.New("pay requires -service and -card")
	}

	return a.gate.Guard(func() error {
		receipt, err := a.certificates.Pay(a.ctx, certificates.PaymentRequest{
			ServiceID:  *serviceID,
			CardNumber: strings.ReplaceAll(*cardNumber, " ", ""),
			CardName:   *cardName,
			ExpiryDate: *expiry,
			CVV:        *cvv,
			Email:      *email,
			Phone:      *phone,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s\nTransaction: %s  Amount: %.0f  Status: %s\n",
			receipt.Message, receipt.TransactionID, receipt.Amount, receipt.Status)
		return nil
	})
}

func (a *app) generate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	serviceID := fs.Int("service", 0, "service id")
	transactionID := fs.String("transaction", "", "transaction id from 'pay'")
	_ = fs.Parse(args)
	if *serviceID == 0 || *transactionID == "" {
		return errors.New("generate requires -service and -transaction")
	}

	return a.gate.Guard(func() error {
		doc, err := a.certificates.Generate(a.ctx, *serviceID, *transactionID)
		if err != nil {
			return err
		}
		fmt.Printf("Document issued: %s\nReference: %s\nQR: %s\n", doc.Title, doc.ReferenceNo, doc.QRCode)
		return nil
	})
}

func (a *app) listDocuments() error {
	return a.gate.Guard(func() error {
		docs, err := a.certificates.MyDocuments(a.ctx)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("No documents issued yet.")
			return nil
		}
		fmt.Printf("%-4s %-25s %-38s %s\n", "ID", "TITLE", "REFERENCE", "STATUS")
		for _, doc := range docs {
			fmt.Printf("%-4d %-25s %-38s %s\n", doc.ID, doc.Title, doc.ReferenceNo, doc.Status)
		}
		return nil
	})
}

func (a *app) showDocument(args []string) error {
	fs := flag.NewFlagSet("doc", flag.ExitOnError)
	id := fs.Int("id", 0, "document id")
	_ = fs.Parse(args)
	if *id == 0 {
		return errors.New("doc requires -id")
	}

	return a.gate.Guard(func() error {
		doc, err := a.certificates.Document(a.ctx, *id)
		if err != nil {
			return err
		}
		fmt.Printf("Title:     %s\nReference: %s\nStatus:    %s\nIssued:    %s\nQR:        %s\n",
			doc.Title, doc.ReferenceNo, doc.Status, doc.CreatedAt.Format("2006-01-02"), doc.QRCode)
		return nil
	})
}

func (a *app) revokeDocument(args []string) error {
	fs := flag.NewFlagSet("revoke", flag.ExitOnError)
	id := fs.Int("id", 0, "document id")
	_ = fs.Parse(args)
	if *id == 0 {
		return errors.New("revoke requires -id")
	}

	return a.gate.Guard(func() error {
		if err := a.certificates.Revoke(a.ctx, *id); err != nil {
			return err
		}
		fmt.Println("Document revoked.")
		return nil
	})
}

// verify is deliberately outside the gate: anyone holding a reference number
// may check it, logged in or not.
func (a *app) verify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	ref := fs.String("ref", "", "certificate reference number")
	_ = fs.Parse(args)
	if *ref == "" {
		return errors.New("verify requires -ref")
	}

	result, err := a.certificates.Verify(a.ctx, *ref)
	if err != nil {
		return err
	}
	if !result.Valid {
		fmt.Printf("INVALID: %s\n", result.Message)
		return nil
	}
	doc := utils.Value(result.Certificate)
	fmt.Printf("VALID: %s\nReference: %s\nIssued:    %s\n", doc.Title, doc.ReferenceNo, doc.CreatedAt.Format("2006-01-02"))
	return nil
}

func (a *app) adminUsers(args []string) error {
	fs := flag.NewFlagSet("admin-users", flag.ExitOnError)
	skip := fs.Int("skip", 0, "offset")
	limit := fs.Int("limit", 100, "page size")
	_ = fs.Parse(args)

	return a.gate.Guard(func() error {
		accounts, err := a.users.List(a.ctx, *skip, *limit)
		if err != nil {
			return err
		}
		fmt.Printf("%-4s %-25s %s\n", "ID", "NAME", "EMAIL")
		for _, account := range accounts {
			fmt.Printf("%-4d %-25s %s\n", account.ID, account.Name, account.Email)
		}
		return nil
	})
}

func (a *app) adminUserUpdate(args []string) error {
	fs := flag.NewFlagSet("admin-user-update", flag.ExitOnError)
	id := fs.Int("id", 0, "user id")
	name := fs.String("name", "", "new name")
	email := fs.String("email", "", "new email")
	password := fs.String("password", "", "new password")
	_ = fs.Parse(args)
	if *id == 0 {
		return errors.New("admin-user-update requires -id")
	}

	update := users.Update{}
	if *name != "" {
		update.Name = utils.Ptr(*name)
	}
	if *email != "" {
		update.Email = utils.Ptr(*email)
	}
	if *password != "" {
		update.Password = utils.Ptr(*password)
	}

	return a.gate.Guard(func() error {
		account, err := a.users.UpdateByID(a.ctx, *id, update)
		if err != nil {
			return err
		}
		fmt.Printf("Updated user %d: %s <%s>\n", account.ID, account.Name, account.Email)
		return nil
	})
}

func (a *app) adminUserDelete(args []string) error {
	fs := flag.NewFlagSet("admin-user-delete", flag.ExitOnError)
	id := fs.Int("id", 0, "user id")
	_ = fs.Parse(args)
	if *id == 0 {
		return errors.New("admin-user-delete requires -id")
	}

	return a.gate.Guard(func() error {
		if err := a.users.DeleteByID(a.ctx, *id); err != nil {
			return err
		}
		fmt.Printf("Deleted user %d\n", *id)
		return nil
	})
}

func (a *app) adminTransactions() error {
	return a.gate.Guard(func() error {
		txs, err := a.certificates.Transactions(a.ctx)
		if err != nil {
			return err
		}
		if len(txs) == 0 {
			fmt.Println("No transactions recorded.")
			return nil
		}
		fmt.Printf("%-24s %-25s %8s %-10s %s\n", "TRANSACTION", "STUDENT", "AMOUNT", "STATUS", "DATE")
		for _, tx := range txs {
			fmt.Printf("%-24s %-25s %8.0f %-10s %s\n",
				tx.TransactionID, tx.StudentName, tx.Amount, tx.Status, tx.CreatedAt.Format("2006-01-02"))
		}
		return nil
	})
}

func printProfile(profile session.Profile) {
	fields := make([]string, 0, len(profile))
	for field := range profile {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if field == "courses" {
			if courses, ok := profile[field].([]any); ok {
				fmt.Printf("%-12s %s\n", field+":", strings.Join(utils.ToStringSlice(courses), ", "))
				continue
			}
		}
		fmt.Printf("%-12s %v\n", field+":", profile[field])
	}
}
