package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/flowery-users/pkg/mailer"
)

// PrepareEmailJob fills the template data a queued job needs but producers may
// omit: the recipient email and the template type.
func PrepareEmailJob(job *mailer.EmailJob) {
	job.Template = strings.ToLower(strings.TrimSpace(job.Template))
	if job.Template == "" {
		return
	}
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["Type"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Type"] = job.Template
	}
}
