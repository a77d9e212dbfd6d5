package service

import (
	"bytes"
	"text/template"
	"time"

	"github.com/stemsi/sanmon-backend/internal/model"
)

var (
	reportSubject = template.Must(template.New("subject").Parse(
		`Санитарно-эпидемиологическая обстановка: {{.School}} на {{.Date}}`))

	reportBody = template.Must(template.New("body").Parse(`Школа: {{.School}}
Дата: {{.Date}}

Количество заболевших: {{.CountAllIll}}
Закрыто классов: {{.CountClassClosed}}
Заболевших в закрытых классах: {{.CountIllClosed}}
Обучающихся в закрытых классах: {{.CountAllClosed}}
`))
)

type reportData struct {
	School string
	Date   string
	model.SummaryCounts
}

// RenderReport renders the plain-text daily report for a summary row.
func RenderReport(school string, s model.DailySummary) (subject, body string, err error) {
	data := reportData{
		School:        school,
		Date:          s.DateSend.Format(time.DateOnly),
		SummaryCounts: s.SummaryCounts,
	}

	var buf bytes.Buffer
	if err := reportSubject.Execute(&buf, data); err != nil {
		return "", "", err
	}
	subject = buf.String()

	buf.Reset()
	if err := reportBody.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}
