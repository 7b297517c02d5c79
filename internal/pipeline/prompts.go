package pipeline

import (
	"github.com/osteele/liquid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-agent/internal/genai"
)

var promptEngine = liquid.NewEngine()

func mustParse(src string) *liquid.Template {
	tpl, err := promptEngine.ParseString(src)
	if err != nil {
		panic(err)
	}
	return tpl
}

func render(tpl *liquid.Template, bindings map[string]any) (string, error) {
	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: render prompt")
	}
	return out, nil
}

// Affinity.

var affinitySchema = genai.MustCompileSchema("affinity", `{
	"type": "object",
	"required": ["suggestions"],
	"properties": {
		"suggestions": {
			"type": "array",
			"maxItems": 10,
			"items": {
				"type": "object",
				"required": ["product", "rationale"],
				"properties": {
					"product": {"type": "string", "minLength": 1},
					"rationale": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`)

const affinitySystemPrompt = "You are a product recommendation analyst for an industrial supplier. " +
	"You suggest complementary products a business customer is likely to need next."

var affinityPrompt = mustParse(`Customer industry: {{ industry }}
Products the customer already purchases: {{ frequent | join: ", " }}
{% if catalog.size > 0 %}Products we sell: {{ catalog | join: ", " }}
{% endif %}
Suggest 3 to 5 complementary products this customer does not already purchase. For each one give a short rationale tied to what they already buy.`)

type affinityResponse struct {
	Suggestions []struct {
		Product   string `json:"product"`
		Rationale string `json:"rationale"`
	} `json:"suggestions"`
}

// Scoring.

var scoringSchema = genai.MustCompileSchema("scoring", `{
	"type": "object",
	"required": ["opportunities"],
	"properties": {
		"opportunities": {
			"type": "array",
			"maxItems": 10,
			"items": {
				"type": "object",
				"required": ["product", "type", "score", "rationale"],
				"properties": {
					"product": {"type": "string", "minLength": 1},
					"type": {"enum": ["Cross-Sell", "Upsell"]},
					"score": {"type": "integer", "minimum": 1, "maximum": 10},
					"rationale": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`)

const scoringSystemPrompt = "You are an expert sales analyst. You rank cross-sell opportunities " +
	"(products in categories the customer does not buy yet) and upsell opportunities " +
	"(more or premium products in categories the customer already buys)."

var scoringPrompt = mustParse(`Customer: {{ name }} ({{ industry }}, {{ account_type }} account, priority {{ priority }})
Products the customer already purchases: {{ frequent | join: ", " }}
Products industry peers buy that the customer does not: {% if missing.size > 0 %}{{ missing | join: ", " }}{% else %}none{% endif %}
Complementary product suggestions:
{% if affinity.size > 0 %}{% for s in affinity %}- {{ s }}
{% endfor %}{% else %}- none
{% endif %}
Return the top 5 opportunities. Do not include products the customer already purchases. Score each from 1 (weak) to 10 (strong).`)

type scoringResponse struct {
	Opportunities []struct {
		Product   string `json:"product"`
		Type      string `json:"type"`
		Score     int    `json:"score"`
		Rationale string `json:"rationale"`
	} `json:"opportunities"`
}

// Report.

var reportSystemPrompt = mustParse(`You are an expert sales and marketing analyst. Generate a comprehensive research report and actionable recommendations based on provided customer data. The report must be professional, insightful, and strictly follow the specified structure. Focus on identifying clear cross-sell (selling new products/services to existing customers) and upsell (encouraging customers to buy more expensive, premium, or additional features of products they already own) opportunities.
Ensure the 'Data Analysis' section clearly articulates findings from purchase patterns, peer benchmarking, and product affinity analysis.
The 'Recommendations' section should be a concise, numbered list of actionable suggestions, directly referencing the type (Cross-Sell or Upsell) and a brief reason.
The 'Conclusion' should summarize the potential impact and be forward-looking.

Report Structure to follow:
Research Report: Cross-Sell and Upsell Opportunities for {{ customer_name }}

Introduction:
This report analyzes recent purchasing behavior of {{ customer_name }} and benchmarks against industry peers to identify cross-sell and upsell opportunities.

Customer Overview:
{{ overview }}

Data Analysis:
{{ analysis }}

Recommendations:
{{ recommendations }}

Conclusion:
Targeted cross-sell and upsell campaigns focusing on these products can significantly increase revenue and customer satisfaction. Implementing these recommendations will strengthen the customer relationship and drive business growth.`)

var reportPrompt = mustParse(`Generate the full research report string for customer ID {{ customer_id }} using the following data:

Customer Name: {{ customer_name }}
Customer Overview Data:
{{ overview }}

Data Analysis Insights:
{{ analysis }}

Recommendations for Report:
{{ recommendations }}
`)
