package report

import "github.com/nao1215/a11yscan/internal/model"

// copyText holds the fixed wording of a report in one language.
type copyText struct {
	title           string
	property        string
	value           string
	pageLabel       string
	dateLabel       string
	scanIDLabel     string
	standardLabel   string
	standards       map[model.Standard]string
	riskHeading     string
	riskLabels      map[model.RiskLevel]string
	explanations    map[model.RiskLevel]string
	exposureWarning string
	fineLabel       string
	scoreHeading    string
	summaryHeading  string
	severityColumn  string
	countColumn     string
	severities      map[model.Severity]string
	total           string
	chartTitle      string
	findingsHeading string
	noFindings      string
	instances       string
	refsLabel       string
	fixLabel        string
	impactLabel     string
	referenceLabel  string
	coverageHeading string
	automatedf      string
	manualf         string
	checkedLabel    string
	manualLabel     string
	manualItems     []string
	coverageLabels  map[string]string
	stepsHeading    string
	steps           [3][]string // by scoreBand
	disclaimer      string
	footerf         string
}

var hebrewCopy = copyText{
	title:         "דוח הערכת סיכון נגישות",
	property:      "פרט",
	value:         "ערך",
	pageLabel:     "כתובת",
	dateLabel:     "תאריך סריקה",
	scanIDLabel:   "מזהה סריקה",
	standardLabel: "תקן",
	standards: map[model.Standard]string{
		model.StandardIL5568:   "תקן ישראלי 5568",
		model.StandardWCAG22AA: "WCAG 2.2 AA",
	},
	riskHeading: "הערכת סיכון משפטי",
	riskLabels: map[model.RiskLevel]string{
		model.RiskLow:      "רמת סיכון: נמוכה",
		model.RiskMedium:   "רמת סיכון: בינונית",
		model.RiskHigh:     "רמת סיכון: גבוהה",
		model.RiskCritical: "רמת סיכון: גבוהה מאוד",
	},
	explanations: map[model.RiskLevel]string{
		model.RiskLow:      "מצב הנגישות טוב יחסית. מומלץ לבצע תחזוקה שוטפת.",
		model.RiskMedium:   "קיימים ליקויי נגישות הדורשים טיפול כדי להפחית חשיפה.",
		model.RiskHigh:     "נמצאו ליקויי נגישות חמורים העלולים לחשוף אותך לתביעה או קנס.",
		model.RiskCritical: "רמת סיכון גבוהה מאוד. האתר חשוף באופן משמעותי להליכים משפטיים.",
	},
	exposureWarning: "האתר עלול שלא לעמוד בדרישות תקן הנגישות הישראלי ולהיות חשוף לתביעה או קנס.",
	fineLabel:       "טווח קנס משוער",
	scoreHeading:    "ציון נגישות",
	summaryHeading:  "סיכום ליקויים",
	severityColumn:  "סוג ליקוי",
	countColumn:     "כמות",
	severities: map[model.Severity]string{
		model.SeverityCritical: "קריטי",
		model.SeveritySerious:  "חמור",
		model.SeverityModerate: "בינוני",
		model.SeverityMinor:    "קל",
	},
	total:           `סה"כ`,
	chartTitle:      "התפלגות ליקויים לפי חומרה",
	findingsHeading: "ליקויים שנמצאו",
	noFindings:      "לא נמצאו ליקויי נגישות בבדיקה האוטומטית.",
	instances:       "מופעים",
	refsLabel:       "סעיפי תקן",
	fixLabel:        "תיקון מומלץ",
	impactLabel:     "השפעה",
	referenceLabel:  "מידע נוסף",
	coverageHeading: "כיסוי הבדיקה",
	automatedf:      "כיסוי אוטומטי כולל: %d%%",
	manualf:         "נדרשת בדיקה ידנית: %d%%",
	checkedLabel:    "מה בדקנו אוטומטית:",
	manualLabel:     "מה דורש בדיקה ידנית:",
	manualItems:     []string{"איכות תיאורים חלופיים", "כתוביות לוידאו", "חווית קורא מסך", "בהירות תוכן"},
	coverageLabels: map[string]string{
		"ALT_MISSING":             "תמונות ללא תיאור חלופי",
		"COLOR_CONTRAST":          "ניגודיות צבעים",
		"ARIA":                    "תגיות ARIA",
		"FORM_LABELS":             "תוויות טפסים",
		"LANGUAGE":                "שפת העמוד",
		"PAGE_TITLE":              "כותרת העמוד",
		"LINK_NAMES":              "שמות קישורים",
		"ZOOM":                    "הגדלת תצוגה",
		"KEYBOARD_ACCESS":         "ניווט מקלדת",
		"FOCUS_VISIBLE":           "נראות פוקוס",
		"SKIP_LINK":               "קישור דילוג לתוכן",
		"FORM_ERRORS":             "הודעות שגיאה בטפסים",
		"ACCESSIBILITY_STATEMENT": "הצהרת נגישות",
	},
	stepsHeading: "המלצות לצעדים הבאים",
	steps: [3][]string{
		{
			"המשך לשמור על רמת הנגישות הגבוהה",
			"בצע בדיקה ידנית לכיסוי המלא",
			"הוסף בדיקות נגישות ל-CI/CD",
		},
		{
			"טפל בבעיות הקריטיות תחילה",
			"הוסף טקסט חלופי לכל התמונות",
			"תקן ניגודיות צבעים",
			"בצע בדיקה ידנית",
		},
		{
			"התייעץ עם מומחה נגישות",
			"טפל בכל הבעיות הקריטיות מיד",
			"שקול שירות תיקון מלא",
			"צור תוכנית נגישות ארגונית",
		},
	},
	disclaimer: "דוח זה מבוסס על סריקה אוטומטית ואינו מהווה ייעוץ משפטי. נגישות מלאה דורשת גם בדיקה ידנית מקצועית.",
	footerf:    "נוצר על ידי a11yscan | %s",
}

var englishCopy = copyText{
	title:         "Accessibility Risk Assessment Report",
	property:      "Property",
	value:         "Value",
	pageLabel:     "URL",
	dateLabel:     "Scan Date",
	scanIDLabel:   "Scan ID",
	standardLabel: "Standard",
	standards: map[model.Standard]string{
		model.StandardIL5568:   "Israeli Standard 5568",
		model.StandardWCAG22AA: "WCAG 2.2 AA",
	},
	riskHeading: "Legal Risk Assessment",
	riskLabels: map[model.RiskLevel]string{
		model.RiskLow:      "Risk level: Low",
		model.RiskMedium:   "Risk level: Medium",
		model.RiskHigh:     "Risk level: High",
		model.RiskCritical: "Risk level: Critical",
	},
	explanations: map[model.RiskLevel]string{
		model.RiskLow:      "Accessibility is in relatively good shape. Keep up regular maintenance.",
		model.RiskMedium:   "Some accessibility defects need attention to reduce exposure.",
		model.RiskHigh:     "Serious accessibility defects were found that may expose you to a lawsuit or fine.",
		model.RiskCritical: "Very high risk. The site is significantly exposed to legal proceedings.",
	},
	exposureWarning: "The site may not meet the Israeli accessibility standard and may be exposed to a lawsuit or fine.",
	fineLabel:       "Estimated fine range",
	scoreHeading:    "Accessibility Score",
	summaryHeading:  "Defect Summary",
	severityColumn:  "Severity",
	countColumn:     "Count",
	severities: map[model.Severity]string{
		model.SeverityCritical: "Critical",
		model.SeveritySerious:  "Serious",
		model.SeverityModerate: "Moderate",
		model.SeverityMinor:    "Minor",
	},
	total:           "Total",
	chartTitle:      "Defects by Severity",
	findingsHeading: "Findings",
	noFindings:      "The automated scan found no accessibility defects.",
	instances:       "instances",
	refsLabel:       "Standard references",
	fixLabel:        "Recommended fix",
	impactLabel:     "Impact",
	referenceLabel:  "Reference",
	coverageHeading: "Scan Coverage",
	automatedf:      "Automated coverage: %d%%",
	manualf:         "Requires manual review: %d%%",
	checkedLabel:    "Checked automatically:",
	manualLabel:     "Requires manual review:",
	manualItems:     []string{"Quality of text alternatives", "Video captions", "Screen reader experience", "Content clarity"},
	coverageLabels: map[string]string{
		"ALT_MISSING":             "Images without text alternatives",
		"COLOR_CONTRAST":          "Color contrast",
		"ARIA":                    "ARIA attributes",
		"FORM_LABELS":             "Form labels",
		"LANGUAGE":                "Page language",
		"PAGE_TITLE":              "Page title",
		"LINK_NAMES":              "Link names",
		"ZOOM":                    "Zoom",
		"KEYBOARD_ACCESS":         "Keyboard navigation",
		"FOCUS_VISIBLE":           "Focus visibility",
		"SKIP_LINK":               "Skip link",
		"FORM_ERRORS":             "Form error messages",
		"ACCESSIBILITY_STATEMENT": "Accessibility statement",
	},
	stepsHeading: "Recommended Next Steps",
	steps: [3][]string{
		{
			"Maintain the high accessibility level",
			"Run a manual review for full coverage",
			"Add accessibility checks to CI/CD",
		},
		{
			"Address critical issues first",
			"Add alt text to all images",
			"Fix color contrast",
			"Run a manual review",
		},
		{
			"Consult an accessibility expert",
			"Fix all critical issues immediately",
			"Consider a full remediation service",
			"Create an organizational accessibility plan",
		},
	},
	disclaimer: "This report is based on an automated scan and is not legal advice. Full accessibility also requires a professional manual review.",
	footerf:    "Generated by a11yscan | %s",
}

// textFor returns the wording for a locale, falling back to Hebrew.
func textFor(locale model.Locale) *copyText {
	if locale == model.LocaleEN {
		return &englishCopy
	}
	return &hebrewCopy
}

func (c *copyText) standard(s model.Standard) string {
	if name, ok := c.standards[s]; ok {
		return name
	}
	return string(s)
}

func (c *copyText) riskLabel(level model.RiskLevel) string {
	if label, ok := c.riskLabels[level]; ok {
		return label
	}
	return c.riskLabels[model.RiskMedium]
}

func (c *copyText) coverageLabel(key string) string {
	if label, ok := c.coverageLabels[key]; ok {
		return label
	}
	return key
}

// nextSteps picks recommendations by score band: 80 and above, 60 and
// above, and below 60. The bands are independent of the risk level.
func (c *copyText) nextSteps(score int) []string {
	return c.steps[scoreBand(score)]
}

func scoreBand(score int) int {
	switch {
	case score >= 80:
		return 0
	case score >= 60:
		return 1
	default:
		return 2
	}
}
