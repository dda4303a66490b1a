package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
)

var newModulePath string

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a runnable starter project",
	Long: `Create a directory holding a minimal gofu application: a main.go
with an application block, a configuration file, and a message bundle.

Examples:
  gofu new blog
  gofu new shop --module github.com/acme/shop`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() {
	newCmd.Flags().StringVar(&newModulePath, "module", "",
		"Go module path (defaults to the project name)")
}

var projectNameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

func runNew(cmd *cobra.Command, args []string) error {
	name := args[0]
	if !projectNameRe.MatchString(name) {
		return fmt.Errorf("project name %q must be lower-case letters, digits, and dashes", name)
	}

	module := newModulePath
	if module == "" {
		module = name
	}

	if _, err := os.Stat(name); err == nil {
		return fmt.Errorf("directory %q already exists", name)
	}

	if err := scaffold(name, scaffoldData{Name: name, Module: module}, cmd.OutOrStdout()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nProject ready. Next:\n  cd %s\n  go mod tidy\n  go run .\n", name)
	return nil
}

type scaffoldData struct {
	Name   string
	Module string
}

type scaffoldFile struct {
	path    string
	content string
}

var scaffoldFiles = []scaffoldFile{
	{path: "main.go", content: mainTemplate},
	{path: "application.yaml", content: configTemplate},
	{path: "messages/messages.properties", content: messagesTemplate},
	{path: "go.mod", content: goModTemplate},
	{path: ".gitignore", content: gitignoreTemplate},
}

// scaffold renders every starter file into dir, creating it as needed.
func scaffold(dir string, data scaffoldData, out io.Writer) error {
	for _, f := range scaffoldFiles {
		path := filepath.Join(dir, f.path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		content, err := renderScaffold(f.content, data)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "  create %s\n", path)
	}
	return nil
}

func renderScaffold(tmpl string, data scaffoldData) (string, error) {
	t, err := template.New("scaffold").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

const mainTemplate = `package main

import (
	"log"

	"github.com/gofu-framework/gofu"
)

func main() {
	app := gofu.WebApplication(func(a *gofu.ApplicationDSL) {
		a.Name("{{.Name}}")
		a.Messages(func(m *gofu.MessagesDSL) {
			m.Dir("messages")
		})
		a.Server(func(s *gofu.ServerDSL) {
			s.Router(func(r *gofu.RouterDSL) {
				r.GET("/", func(c *gofu.Context) error {
					msg, err := c.Message("welcome")
					if err != nil {
						return err
					}
					return c.OK(map[string]string{"message": msg})
				})
			})
		})
	})

	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
`

const configTemplate = `server:
  port: 8080
`

const messagesTemplate = `welcome=Welcome to {{.Name}}!
`

const goModTemplate = `module {{.Module}}

go 1.25

require github.com/gofu-framework/gofu v0.1.0
`

const gitignoreTemplate = `*.log
.env
`
