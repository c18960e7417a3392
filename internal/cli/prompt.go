package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/rescale/appendix-client/internal/config"
	inthttp "github.com/rescale/appendix-client/internal/http"
)

// prompter reads answers line by line for interactive setup.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// ask prints label with its default and returns the trimmed answer, or def
// when the answer is empty.
func (p *prompter) ask(label, def string) string {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	input, _ := p.in.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	return input
}

// choose asks until the answer is one of allowed.
func (p *prompter) choose(label, def string, allowed []string) string {
	for {
		answer := p.ask(fmt.Sprintf("%s (%s)", label, strings.Join(allowed, "/")), def)
		for _, a := range allowed {
			if strings.EqualFold(answer, a) {
				return a
			}
		}
		fmt.Fprintf(p.out, "  Error: must be one of %s\n", strings.Join(allowed, ", "))
		if _, err := p.in.Peek(1); err != nil {
			return def
		}
	}
}

// float asks until the answer parses and passes check.
func (p *prompter) float(label string, def float64, check func(float64) error) float64 {
	for {
		answer := p.ask(label, strconv.FormatFloat(def, 'f', -1, 64))
		v, err := strconv.ParseFloat(answer, 64)
		if err == nil {
			err = check(v)
		}
		if err == nil {
			return v
		}
		fmt.Fprintf(p.out, "  Error: %v\n", err)
		if _, peekErr := p.in.Peek(1); peekErr != nil {
			return def
		}
	}
}

func (p *prompter) confirm(label string) bool {
	answer := strings.ToLower(p.ask(label+" [y/N]", ""))
	return answer == "y" || answer == "yes"
}

// promptProxyPassword asks for the proxy password on the terminal when the
// config names a proxy user without one. The password only lives in memory.
func promptProxyPassword(cfg *config.Config) error {
	if !inthttp.NeedsProxyPassword(cfg) {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("proxy user %q has no password; set %s", cfg.ProxyUser, config.EnvProxyPassword)
	}

	fmt.Fprintf(os.Stderr, "Proxy password for %s: ", cfg.ProxyUser)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read proxy password: %w", err)
	}
	cfg.ProxyPassword = string(password)
	return nil
}
