package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/saber-pedagogico/saber/core"
	"github.com/saber-pedagogico/saber/core/school"
	"github.com/saber-pedagogico/saber/core/store"
)

var (
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) } // mockable

	errHelp         = errors.New("help provided")
	errUserNotFound = errors.New("user not found")
	errUserExists   = errors.New("a user with this email already exists")
	errNotConfirmed = errors.New("reset not confirmed")
)

type commandLine struct {
	store    *store.Store
	validate *validator.Validate
	in       io.Reader
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  users - list users")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL [-role ROLE] - add a user")
	fmt.Fprintln(cli.out, "  setrole -email EMAIL -role ROLE - change the role (plan) of a user")
	fmt.Fprintln(cli.out, "  token -email EMAIL - print a session token for a user")
	fmt.Fprintln(cli.out, "  reset [-yes] - put the demo data back, erasing everything")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email, used to log in.")
	addUserRole := addUserCmd.String("role", string(school.RoleDocente), "One of DOCENTE, MESTRE, MESTRE_PLUS or SUPER_ADM.")

	setRoleCmd := flag.NewFlagSet("setrole", flag.ContinueOnError)
	setRoleEmail := setRoleCmd.String("email", "", "The user's email.")
	setRoleRole := setRoleCmd.String("role", "", "One of DOCENTE, MESTRE, MESTRE_PLUS or SUPER_ADM.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenEmail := tokenCmd.String("email", "", "The user's email.")

	resetCmd := flag.NewFlagSet("reset", flag.ContinueOnError)
	resetYes := resetCmd.Bool("yes", false, "Do not ask for confirmation.")

	for _, fs := range []*flag.FlagSet{addUserCmd, setRoleCmd, tokenCmd, resetCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "users":
		return cli.listUsers()

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, *addUserRole)

	case "setrole":
		if err := setRoleCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *setRoleEmail == "" || *setRoleRole == "" {
			setRoleCmd.Usage()
			return errHelp
		}
		return cli.setRole(*setRoleEmail, *setRoleRole)

	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *tokenEmail == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenEmail)

	case "reset":
		if err := resetCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.reset(*resetYes)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) checkEmailAndRole(email, role string) error {
	if err := cli.validate.Var(email, "email"); err != nil {
		return fmt.Errorf("invalid email %q", email)
	}
	if err := cli.validate.Var(role, "role"); err != nil {
		return fmt.Errorf("invalid role %q", role)
	}
	return nil
}

func (cli *commandLine) listUsers() error {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
	for _, usr := range cli.store.GetState().Users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", usr.ID, usr.Name, usr.Email, usr.Role)
	}
	return w.Flush()
}

func (cli *commandLine) addUser(name, email, role string) error {
	name = core.CleanString(name)
	email = core.CleanString(email)
	if err := cli.checkEmailAndRole(email, role); err != nil {
		return err
	}
	usr, ok := cli.store.AddUser(name, email, school.Role(role))
	if !ok {
		return errUserExists
	}
	fmt.Fprintf(cli.out, "added %s <%s> as %s\n", usr.Name, usr.Email, usr.Role)
	return nil
}

func (cli *commandLine) setRole(email, role string) error {
	email = core.CleanString(email)
	if err := cli.checkEmailAndRole(email, role); err != nil {
		return err
	}
	usr, ok := cli.store.SetUserRole(email, school.Role(role))
	if !ok {
		return errUserNotFound
	}
	fmt.Fprintf(cli.out, "%s is now %s\n", usr.Email, usr.Role)
	return nil
}

func (cli *commandLine) token(email string) error {
	token, ok := cli.store.IssueToken(core.CleanString(email))
	if !ok {
		return errUserNotFound
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

// reset asks for confirmation on a terminal and refuses to run unattended without -yes.
func (cli *commandLine) reset(yes bool) error {
	if !yes {
		if !isTerminalFunc() {
			return errNotConfirmed
		}
		fmt.Fprint(cli.out, "This erases every user, class and student. Type 'yes' to continue: ")
		answer, err := bufio.NewReader(cli.in).ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		if strings.TrimSpace(answer) != "yes" {
			return errNotConfirmed
		}
	}
	cli.store.Reset()
	fmt.Fprintln(cli.out, "demo data restored")
	return nil
}
