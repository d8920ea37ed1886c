package mailer

import "html/template"

var orderEmail = template.Must(template.New("order").Funcs(template.FuncMap{
	"money": money,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  .header { background: #16a34a; color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
  .content { background: #f9fafb; padding: 30px; border-radius: 0 0 10px 10px; }
  .order-info { background: white; padding: 20px; border-radius: 8px; margin-bottom: 20px; }
  .items-table { width: 100%; border-collapse: collapse; margin: 20px 0; }
  .items-table th { background: #f3f4f6; padding: 10px; text-align: left; border-bottom: 2px solid #e5e7eb; }
  .items-table td { padding: 10px; border-bottom: 1px solid #e5e7eb; }
  .total-row { font-weight: bold; font-size: 1.1em; }
  .footer { text-align: center; margin-top: 30px; color: #6b7280; font-size: 0.9em; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>{{if .AdminCopy}}New Order Received{{else}}Order Confirmation{{end}}</h1>
  </div>
  <div class="content">
    <div class="order-info">
      <h2>Order #{{.Order.OrderNumber}}</h2>
      <p><strong>Customer:</strong> {{.Order.CustomerName}}</p>
      <p><strong>Phone:</strong> {{.Order.CustomerPhone}}</p>
      <p><strong>Fulfillment:</strong> {{if .Pickup}}Pickup{{else}}Delivery{{end}}</p>
      {{- with .Order.DeliveryAddress}}
      <p><strong>Delivery Address:</strong> {{.}}</p>
      {{- end}}
      {{- if .Order.ExpressDelivery}}
      <p><strong>Express delivery requested</strong></p>
      {{- end}}
      {{- with .Order.CustomerNotes}}
      <p><strong>Notes:</strong> {{.}}</p>
      {{- end}}
    </div>
    <table class="items-table">
      <thead>
        <tr><th>Item</th><th>Qty</th><th>Price</th><th>Total</th></tr>
      </thead>
      <tbody>
        {{- range .Order.Items}}
        <tr>
          <td>{{.ProductName}}</td>
          <td>{{.Quantity}}</td>
          <td>{{money .PriceAtPurchase}}</td>
          <td>{{money .Subtotal}}</td>
        </tr>
        {{- end}}
        <tr>
          <td colspan="3" style="text-align: right;"><strong>Subtotal:</strong></td>
          <td><strong>{{money .Order.Subtotal}}</strong></td>
        </tr>
        {{- if .Order.DeliveryFee.IsPositive}}
        <tr>
          <td colspan="3" style="text-align: right;"><strong>Delivery Fee:</strong></td>
          <td><strong>{{money .Order.DeliveryFee}}</strong></td>
        </tr>
        {{- end}}
        <tr class="total-row">
          <td colspan="3" style="text-align: right;">TOTAL:</td>
          <td>{{money .Order.Total}}</td>
        </tr>
      </tbody>
    </table>
    {{- if not .AdminCopy}}
    <p style="margin-top: 20px;">
      <strong>Thank you for your order!</strong><br>
      We'll prepare your items and {{if .Pickup}}notify you when ready for pickup{{else}}deliver them to your address{{end}}.
    </p>
    <p>Payment: Cash on {{if .Pickup}}pickup{{else}}delivery{{end}}</p>
    {{- end}}
  </div>
  <div class="footer">
    <p>{{.Shop.Name}}</p>
    {{- with .Shop.Address}}<p>{{.}}</p>{{end}}
    {{- with .Shop.Phone}}<p>{{.}}</p>{{end}}
  </div>
</div>
</body>
</html>
`))
