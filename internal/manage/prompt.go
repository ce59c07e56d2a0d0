package manage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dmitrijs2005/customuser/internal/common"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// readLine prints prompt to w and reads one line from reader. A final line
// without a newline is still returned.
func readLine(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// getPassword reads a password from the terminal without echo.
func getPassword(prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

const passwordAttempts = 3

// askNewPassword asks for a password twice until both entries match and
// are not blank.
func askNewPassword(w io.Writer) (string, error) {
	for i := 0; i < passwordAttempts; i++ {
		p1, err := getPassword("Password: ", w)
		if err != nil {
			return "", err
		}
		p2, err := getPassword("Password (again): ", w)
		if err != nil {
			return "", err
		}
		switch {
		case p1 != p2:
			fmt.Fprintln(w, "Error: Your passwords didn't match.")
		case strings.TrimSpace(p1) == "":
			fmt.Fprintln(w, "Error: Blank passwords aren't allowed.")
		default:
			return p1, nil
		}
	}
	return "", fmt.Errorf("aborting after %d attempts", passwordAttempts)
}
