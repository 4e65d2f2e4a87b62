package notification

import (
	"fmt"
	"html/template"
	"strings"

	orderdom "github.com/commercekit/order-intake/internal/order/domain"
	userdom "github.com/commercekit/order-intake/internal/user/domain"
)

var invoiceTmpl = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"cents": formatCents,
}).Parse(`<html>
<body>
  <h2>Thanks for your order{{if .User.Name}}, {{.User.Name}}{{end}}!</h2>
  <p>Order <strong>{{.Order.ID}}</strong> was received and is being processed.</p>
  <table border="1" cellpadding="4" cellspacing="0">
    <tr><th>Product</th><th>Qty</th><th>Price</th></tr>
    {{range .Order.Items}}
    <tr><td>{{.ProductID}}</td><td>{{.Quantity}}</td><td>{{cents .PriceCents}}</td></tr>
    {{end}}
    <tr><td colspan="2"><strong>Total</strong></td><td><strong>{{cents .Order.TotalCents}}</strong></td></tr>
  </table>
  <p>Shipping to: {{.Order.SelectedAddress.Street}}, {{.Order.SelectedAddress.City}}{{if .Order.SelectedAddress.PostalCode}} {{.Order.SelectedAddress.PostalCode}}{{end}}</p>
</body>
</html>`))

type invoiceData struct {
	Order orderdom.Order
	User  userdom.User
}

func InvoiceHTML(o orderdom.Order, u userdom.User) (string, error) {
	var b strings.Builder
	if err := invoiceTmpl.Execute(&b, invoiceData{Order: o, User: u}); err != nil {
		return "", err
	}
	return b.String(), nil
}

func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s$%d.%02d", sign, c/100, c%100)
}
