// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/civicdata/legislator-research/pkg/types"
)

// researchPromptTmpl is the prompt sent to the backend for one legislator.
// It fixes the exact JSON shape of the findings so normalization stays a
// decode rather than a reconstruction. The web-search variant additionally
// directs the model at campaign finance databases.
var researchPromptTmpl = template.Must(template.New("research").Parse(`Research {{.Name}}, a {{.Party}} {{.Chamber}} legislator from {{.State}}{{if .District}} district {{.District}}{{end}}.
{{- if .CampaignSite}}
Their campaign or official website may be: {{.CampaignSite}}
{{- end}}
{{if .WebSearch}}
You have access to web search tools. Use them to find COMPREHENSIVE and ACCURATE information about:

1. POLICY ISSUES: their campaign positions, voting record, and policy stances across all major areas (healthcare, economy, immigration, education, environment, foreign policy, social issues, etc.)

2. DONOR INFORMATION: search OpenSecrets.org, FEC.gov, and other official campaign finance databases for top corporate donors with specific amounts, industry breakdowns with percentages, PAC and ideological donor information, and individual donor data where available.

Get specific dollar amounts and company names, not estimates, and include the correct OpenSecrets URL for the legislator.
{{else}}
Based on your knowledge, provide information about their campaign issues and donor information.

For donors, include both corporate AND ideological/single-issue donors (PACs, advocacy groups, etc.).
{{end}}
Output ONLY valid JSON in this exact structure:
{
  "issues": [
    {
      "title": "Issue Title",
      "description": "Their specific stance or position",
      "category": "Policy category (healthcare, education, etc.)",
      "source": "URL or source of information"
    }
  ],
  "donors": {
    "top_companies": [
      {
        "name": "Company/Organization Name",
        "amount": "Dollar amount or range if available",
        "industry": "Industry classification",
        "cycle": "Election cycle (e.g., 2024, 2022)"
      }
    ],
    "top_industries": [
      {
        "industry": "Industry Name",
        "total_amount": "Total contributions if available",
        "percentage": "Percentage of total if available"
      }
    ],
    "ideological_donors": [
      {
        "name": "PAC/Advocacy group name",
        "amount": "Dollar amount or range if available",
        "ideology": "Conservative/Liberal/Single-issue description",
        "issue_focus": "Specific issue they advocate for",
        "cycle": "Election cycle"
      }
    ],
    "individual_donors": [
      {
        "name": "Individual donor name",
        "amount": "Amount if available",
        "occupation": "Occupation if available"
      }
    ],
    "data_source": "Source of donor information (OpenSecrets, FEC, state records, etc.)",
    "source_url": "URL to donor database or records"
  },
  "sources": [
    "List of primary sources used for this research"
  ]
}

IMPORTANT: Output ONLY valid JSON. Do not include any explanatory text, markdown formatting, or code blocks. The response should be a single JSON object that can be parsed directly.`))

// renderPrompt executes the research prompt template for one person.
func renderPrompt(rec types.PersonRecord, webSearch bool) (string, error) {
	data := struct {
		Name, Party, Chamber, State, District, CampaignSite string
		WebSearch                                           bool
	}{
		Name:         rec.Name,
		Party:        rec.Party,
		Chamber:      string(rec.Chamber),
		State:        rec.State,
		District:     rec.District,
		CampaignSite: rec.CampaignSite,
		WebSearch:    webSearch,
	}

	var buf bytes.Buffer
	if err := researchPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering research prompt: %w", err)
	}
	return buf.String(), nil
}

// retryNote is appended to the prompt on retry attempts after an
// unparseable response.
func retryNote(attempt int) string {
	return fmt.Sprintf("\n\nRETRY ATTEMPT %d: Please ensure you output ONLY valid JSON without any markdown formatting, code blocks, or explanatory text.", attempt+1)
}
