package tasks

import (
	"encoding/xml"
	"fmt"
	"time"
)

// eocDocument is the Evidence of Compromise payload that drives SEPM scans.
type eocDocument struct {
	XMLName    xml.Name      `xml:"EOC"`
	Creator    string        `xml:"creator,attr"`
	Version    string        `xml:"version,attr"`
	ID         string        `xml:"id,attr"`
	DataSource eocDataSource `xml:"DataSource"`
	ScanType   string        `xml:"ScanType"`
	Threat     eocThreat     `xml:"Threat"`
	Activity   string        `xml:"Activity"`
}

type eocDataSource struct {
	Name    string `xml:"name,attr"`
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
}

type eocThreat struct {
	Category    string `xml:"category,attr"`
	Type        string `xml:"type,attr"`
	Severity    string `xml:"severity,attr"`
	Time        string `xml:"time,attr"`
	Description string `xml:"Description"`
	Attacker    string `xml:"Attacker"`
}

func eocPayload(scanType, description string, at time.Time) ([]byte, error) {
	doc := eocDocument{
		Creator:    "epm",
		Version:    "1.1",
		ID:         "1",
		DataSource: eocDataSource{Name: "Third-Party Provider", ID: "1", Version: "1.0"},
		ScanType:   scanType,
		Threat: eocThreat{
			Time:        at.UTC().Format("01/02/2006 15:04:05 MST"),
			Description: description,
		},
	}
	out, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode eoc payload: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
