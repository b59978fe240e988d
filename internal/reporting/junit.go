package reporting

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spboyer/bagcheck/internal/checkpoint"
	"github.com/spboyer/bagcheck/internal/evaluate"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one grading run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one checkpoint.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure is a checkpoint graded below its maximum.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError is a checkpoint flagged with a special code.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a checkpoint that was never tested.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a grading report to JUnit XML format. Full marks
// pass, partial marks fail, flagged checkpoints error and ungraded ones are
// skipped.
func ConvertToJUnit(report *evaluate.Report) *JUnitTestSuites {
	durationSec := report.FinishedAt.Sub(report.StartedAt).Seconds()
	if durationSec < 0 {
		durationSec = 0
	}

	suite := JUnitTestSuite{
		Name:      "bagcheck",
		Time:      durationSec,
		Timestamp: report.StartedAt.UTC().Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "run_id", Value: report.RunID},
			{Name: "root", Value: report.Root},
			{Name: "score", Value: checkpoint.FormatScore(report.List.TotalScore())},
			{Name: "max", Value: checkpoint.FormatScore(report.List.TotalMax())},
			{Name: "halted", Value: strconv.FormatBool(report.Halted)},
		},
	}
	if report.Halted {
		suite.Properties = append(suite.Properties, JUnitProperty{Name: "halt_reason", Value: report.HaltReason})
	}

	for _, cp := range report.List.Entries() {
		tc := convertCheckPoint(cp)
		switch {
		case tc.Failure != nil:
			suite.Failures++
		case tc.Error != nil:
			suite.Errors++
		case tc.Skipped != nil:
			suite.Skipped++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}
	suite.Tests = len(suite.TestCases)

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Errors:     suite.Errors,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertCheckPoint(cp *checkpoint.CheckPoint) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      cp.ID(),
		Classname: "bagcheck",
	}

	switch cp.Status() {
	case checkpoint.StatusUngraded:
		tc.Skipped = &JUnitSkipped{Message: "not tested"}
	case checkpoint.StatusSpecial:
		tc.Error = &JUnitError{
			Message: fmt.Sprintf("%s: flagged %s", cp.ID(), cp.Code()),
			Type:    "CheckPointFlagged",
			Body:    cp.String(),
		}
	default:
		if cp.Score() < cp.Max() {
			tc.Failure = &JUnitFailure{
				Message: fmt.Sprintf("%s: score=%s/%s", cp.ID(), checkpoint.FormatScore(cp.Score()), checkpoint.FormatScore(cp.Max())),
				Type:    "PartialCredit",
				Body:    cp.String(),
			}
		}
	}
	return tc
}

// WriteJUnit writes JUnit XML for report to w.
func WriteJUnit(w io.Writer, report *evaluate.Report) error {
	data, err := xml.MarshalIndent(ConvertToJUnit(report), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}
