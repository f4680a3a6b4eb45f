package patient

import (
	"bytes"
	htmltemplate "html/template"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/mediqueue/mediqueue/pkg/display"
)

const (
	DefaultClinicName = "MediQueue Clinic"
	dateLayout        = display.DateLayout
)

const rule = "═══════════════════════════════════════════════════════════════"

var funcs = template.FuncMap{
	"date":  display.FormatDate,
	"time":  display.FormatTime,
	"join":  strings.Join,
	"title": titleCase,
	"rule":  func() string { return rule },
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var prescriptionTmpl = template.Must(template.New("prescription").Funcs(funcs).Parse(`{{rule}}
                        MEDICAL PRESCRIPTION
{{rule}}

CLINIC INFORMATION:
Clinic Name: {{.Clinic}}
Date: {{date .Record.CreatedAt}}
Time: {{time .Record.CreatedAt}}

PATIENT INFORMATION:
Patient ID: {{.Patient.UID}}
Name: {{.Patient.Name}}
Age: {{if .Patient.Age}}{{.Patient.Age}}{{else}}N/A{{end}} years
Phone: {{.Patient.Phone}}
{{- with .Patient.Email}}
Email: {{.}}{{end}}
{{- with .Patient.BloodGroup}}
Blood Group: {{.}}{{end}}
{{- if .Patient.Allergies}}

ALLERGIES: {{join .Patient.Allergies ", "}}{{end}}
{{- if .Patient.MedicalConditions}}

MEDICAL CONDITIONS: {{join .Patient.MedicalConditions ", "}}{{end}}

DOCTOR INFORMATION:
{{- with .Record.Doctor}}
Doctor: {{.Name}}
{{- with .Qualification}}
Qualification: {{.}}{{end}}
Specialization: {{.Specialization}}
{{- if .ExperienceYears}}
Experience: {{.ExperienceYears}} years{{end}}
{{- else}}
Doctor: N/A
Specialization: N/A
{{- end}}
{{- with .Record.Visit}}

VISIT INFORMATION:
Token Number: #{{.STN}}
Department: {{title .Department}}
Visit Date: {{.VisitDate}}
{{- end}}

{{rule}}
                           PRESCRIPTION
{{rule}}
{{- with .Record.Diagnosis}}

DIAGNOSIS:
{{.}}{{end}}
{{- with .Record.Prescription}}

PRESCRIPTION:
{{.}}{{end}}
{{- with .Record.Notes}}

ADDITIONAL NOTES:
{{.}}{{end}}

{{rule}}

IMPORTANT INSTRUCTIONS:
- Take medicines as prescribed by the doctor
- Complete the full course of medication
- Do not share medicines with others
- Consult doctor if you experience any side effects
- Keep medicines away from children
- Store medicines in a cool, dry place

{{rule}}
This is a digitally generated prescription.
Generated on: {{.Generated.Format "Jan 02, 2006 15:04"}}
{{rule}}
`))

type prescriptionView struct {
	Clinic    string
	Patient   *Patient
	Record    *MedicalHistory
	Generated time.Time
}

func renderPrescription(clinic string, p *Patient, h *MedicalHistory, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := prescriptionTmpl.Execute(&buf, prescriptionView{Clinic: clinic, Patient: p, Record: h, Generated: now})
	return buf.Bytes(), err
}

func renderHistory(clinic string, p *Patient, records []*MedicalHistory, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(rule + "\n                    COMPLETE MEDICAL HISTORY\n" + rule + "\n\n")
	buf.WriteString("PATIENT: " + p.Name + "\n")
	buf.WriteString("PATIENT ID: " + p.UID + "\n")
	buf.WriteString("TOTAL PRESCRIPTIONS: " + strconv.Itoa(len(records)) + "\n")
	buf.WriteString("GENERATED ON: " + now.Format("Jan 02, 2006 15:04") + "\n\n" + rule + "\n")
	for i, h := range records {
		buf.WriteString("\nPRESCRIPTION #" + strconv.Itoa(i+1) + "\n")
		if err := prescriptionTmpl.Execute(&buf, prescriptionView{Clinic: clinic, Patient: p, Record: h, Generated: now}); err != nil {
			return nil, err
		}
	}
	buf.WriteString("\nEND OF MEDICAL HISTORY\n" + rule + "\n")
	return buf.Bytes(), nil
}

var reportTmpl = htmltemplate.Must(htmltemplate.New("report").Funcs(htmltemplate.FuncMap{
	"date":  display.FormatDate,
	"join":  strings.Join,
	"label": display.Label,
	"badge": func(status string) string { return display.NewBadge(status, display.VisitStatusTone).Classes },
	"orNA": func(s *string) string {
		if s == nil || *s == "" {
			return "N/A"
		}
		return *s
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Patient Report - {{.Record.Patient.Name}}</title>
<style>
body { font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
header { text-align: center; border-bottom: 2px solid #333; padding-bottom: 20px; margin-bottom: 20px; }
h1 { color: #2563eb; margin: 0; }
h2 { color: #333; border-bottom: 2px solid #2563eb; padding-bottom: 10px; }
.grid { display: grid; grid-template-columns: repeat(4, 1fr); gap: 15px; }
.stat { text-align: center; padding: 15px; background: #f3f4f6; border-radius: 8px; }
.alert { margin-top: 15px; padding: 10px; border-left: 4px solid #ef4444; background: #fef2f2; }
.record { margin: 20px 0; padding: 20px; border: 1px solid #e5e7eb; border-radius: 8px; }
.rx { white-space: pre-line; background: #f0fdf4; padding: 10px; }
table { width: 100%; border-collapse: collapse; }
th, td { padding: 12px; border: 1px solid #e5e7eb; text-align: left; }
@media print { .no-print { display: none; } }
</style>
</head>
<body>
<header>
<h1>{{.Clinic}}</h1>
<p>Patient Medical History Report</p>
<p>Generated on: {{date .Generated}}</p>
</header>

<section>
<h2>Patient Information</h2>
{{with .Record.Patient}}
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Age:</strong> {{if .Age}}{{.Age}} years{{else}}N/A{{end}}</p>
<p><strong>Phone:</strong> {{.Phone}}</p>
<p><strong>Patient ID:</strong> {{.UID}}</p>
{{with .Email}}<p><strong>Email:</strong> {{.}}</p>{{end}}
{{with .BloodGroup}}<p><strong>Blood Group:</strong> {{.}}</p>{{end}}
{{with .EmergencyContact}}<p><strong>Emergency Contact:</strong> {{.}}</p>{{end}}
<p><strong>Registered:</strong> {{date .CreatedAt}}</p>
{{if .Allergies}}<div class="alert"><h4>Allergies:</h4><p>{{join .Allergies ", "}}</p></div>{{end}}
{{if .MedicalConditions}}<div class="alert"><h4>Medical Conditions:</h4><p>{{join .MedicalConditions ", "}}</p></div>{{end}}
{{end}}
</section>

<section>
<h2>Visit Summary</h2>
<div class="grid">
<div class="stat"><h3>{{.Record.Summary.TotalVisits}}</h3><p>Total Visits</p></div>
<div class="stat"><h3>{{.Record.Summary.CompletedVisits}}</h3><p>Completed</p></div>
<div class="stat"><h3>{{.Record.Summary.MedicalRecords}}</h3><p>Medical Records</p></div>
<div class="stat"><h3>{{.Record.Summary.Departments}}</h3><p>Departments</p></div>
</div>
</section>

{{if .Record.History}}
<section>
<h2>Medical History</h2>
{{range .Record.History}}
<div class="record">
<h3>{{date .CreatedAt}} <small>{{if .Doctor}}{{.Doctor.Name}}{{else}}Unknown Doctor{{end}}</small></h3>
{{with .Diagnosis}}<h4>Diagnosis:</h4><p>{{.}}</p>{{end}}
{{with .Prescription}}<h4>Prescription:</h4><div class="rx">{{.}}</div>{{end}}
{{with .Notes}}<h4>Notes:</h4><p>{{.}}</p>{{end}}
</div>
{{end}}
</section>
{{end}}

<section>
<h2>Visit History</h2>
<table>
<thead><tr><th>Date</th><th>Token</th><th>Department</th><th>Doctor</th><th>Status</th></tr></thead>
<tbody>
{{range .Record.Visits}}
<tr><td>{{.VisitDate}}</td><td>#{{.STN}}</td><td style="text-transform: capitalize;">{{.Department}}</td><td>{{orNA .DoctorName}}</td><td><span class="{{badge .Status}}">{{label .Status}}</span></td></tr>
{{end}}
</tbody>
</table>
</section>

<footer>
<p>This report was generated by {{.Clinic}}</p>
<p>For any queries, please contact the clinic administration</p>
</footer>
<div class="no-print"><button onclick="window.print()">Print Report</button></div>
</body>
</html>
`))

type reportView struct {
	Clinic    string
	Record    *Record
	Generated time.Time
}

func renderReport(clinic string, rec *Record, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, reportView{Clinic: clinic, Record: rec, Generated: now}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
