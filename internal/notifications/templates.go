package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strings"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

const (
	templateOrderConfirmation = "order_confirmation"
	templateOrderStatusUpdate = "order_status_update"
	templateWishlistReminder  = "wishlist_reminder"
	templateCartAbandonment   = "cart_abandonment"
	templateContactMessage    = "contact_message"
	templateInvestment        = "investment_request"
)

// Templates renders the named HTML email bodies.
type Templates struct {
	set *template.Template
}

// LoadTemplates parses the built-in templates, or every *.html file in dir
// when dir is set.
func LoadTemplates(dir string) (*Templates, error) {
	var (
		fsys    fs.FS = embeddedTemplates
		pattern       = "templates/*.html"
	)
	if strings.TrimSpace(dir) != "" {
		fsys = os.DirFS(dir)
		pattern = "*.html"
	}
	set, err := template.ParseFS(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Templates{set: set}, nil
}

// Render executes the template registered under name (file name without extension).
func (t *Templates) Render(name string, data any) (string, error) {
	tmpl := t.set.Lookup(name + ".html")
	if tmpl == nil {
		return "", fmt.Errorf("email template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

type brandView struct {
	Name         string
	Tagline      string
	SupportEmail string
	SupportPhone string
	Website      string
}

type itemRow struct {
	Name      string
	Variants  string
	Quantity  int
	Price     string
	LineTotal string
}

type orderView struct {
	Title        string
	Brand        brandView
	OrderNumber  string
	CustomerName string
	OrderDate    string
	Total        string
	Address      string
	NewStatus    string
	Items        []itemRow
}

type productRow struct {
	Name  string
	Price string
}

type wishlistView struct {
	Title        string
	Brand        brandView
	CustomerName string
	Products     []productRow
	ActionURL    string
}

type cartView struct {
	Title        string
	Brand        brandView
	CustomerName string
	Items        []itemRow
	Total        string
	ActionURL    string
}

type contactView struct {
	Title string
	Brand brandView
	ContactMessage
}

type investmentView struct {
	Title string
	Brand brandView
	InvestmentRequest
}
