package billing

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/mediqueue/mediqueue/pkg/display"
)

func receiptNumber(t *Transaction) string {
	return strings.ToUpper(t.ID.String()[:8])
}

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": display.FormatCurrency,
	"date":  display.FormatDate,
	"time":  display.FormatTime,
	"upper": strings.ToUpper,
	"visitDate": func(s string) string {
		t, err := time.Parse(display.DayLayout, s)
		if err != nil {
			return s
		}
		return display.FormatDate(t)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt - {{with .Txn.Patient}}{{.Name}}{{else}}Patient{{end}}</title>
<style>
body { font-family: Arial, sans-serif; }
.receipt { max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; }
header { text-align: center; border-bottom: 2px solid #333; padding-bottom: 20px; margin-bottom: 20px; }
h1 { color: #2563eb; margin: 0; }
h3 { color: #333; border-bottom: 1px solid #ccc; padding-bottom: 5px; }
table { width: 100%; border-collapse: collapse; }
td { padding: 8px; border: 1px solid #ddd; }
td.amount { text-align: right; }
footer { text-align: center; border-top: 1px solid #ccc; padding-top: 20px; margin-top: 20px; font-size: 12px; color: #666; }
@media print { .no-print { display: none; } }
</style>
</head>
<body>
<div class="receipt">
<header>
<h1>{{.Clinic}}</h1>
<p>Payment Receipt</p>
<p>Receipt #: {{.Number}}</p>
<p>Date: {{date .Txn.CreatedAt}}</p>
</header>

<section>
<h3>Patient Information</h3>
{{- with .Txn.Patient}}
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Phone:</strong> {{.Phone}}</p>
<p><strong>Patient ID:</strong> {{.UID}}</p>
{{- else}}
<p><strong>Name:</strong> N/A</p>
{{- end}}
{{- with .Txn.Visit}}{{if .STN}}
<p><strong>Token Number:</strong> #{{.STN}}</p>{{end}}{{end}}
</section>

<section>
<h3>Service Details</h3>
{{- with .Txn.Visit}}
<p><strong>Department:</strong> {{if .DepartmentName}}{{.DepartmentName}}{{else}}{{.Department}}{{end}}</p>
{{- with .DoctorName}}
<p><strong>Doctor:</strong> {{.}}</p>{{end}}
<p><strong>Visit Date:</strong> {{visitDate .VisitDate}}</p>
{{- else}}
<p><strong>Department:</strong> N/A</p>
<p><strong>Visit Date:</strong> N/A</p>
{{- end}}
</section>

<section>
<h3>Payment Details</h3>
<table>
<tr><td><strong>Description</strong></td><td class="amount"><strong>Amount</strong></td></tr>
<tr><td>Consultation Fee</td><td class="amount">{{money .Txn.Amount}}</td></tr>
<tr><td><strong>Total Amount</strong></td><td class="amount"><strong>{{money .Txn.Amount}}</strong></td></tr>
</table>
<p><strong>Payment Method:</strong> {{upper .Txn.PaymentMethod}}</p>
<p><strong>Transaction ID:</strong> {{.Txn.Reference}}</p>
<p><strong>Status:</strong> {{upper .Txn.Status}}</p>
<p><strong>Processed At:</strong> {{with .Txn.ProcessedAt}}{{time .}}{{else}}N/A{{end}}</p>
</section>

<footer>
<p>Thank you for choosing {{.Clinic}}</p>
<p>This is a computer-generated receipt</p>
</footer>
</div>
<div class="no-print" style="text-align: center; margin-top: 20px;">
<button onclick="window.print()">Print</button>
</div>
</body>
</html>
`))

type receiptView struct {
	Clinic string
	Number string
	Txn    *Transaction
}

func renderReceipt(clinic string, t *Transaction) ([]byte, error) {
	var buf bytes.Buffer
	err := receiptTmpl.Execute(&buf, receiptView{Clinic: clinic, Number: receiptNumber(t), Txn: t})
	return buf.Bytes(), err
}
