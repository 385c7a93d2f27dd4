// Package corpus supplies the documents fed to the index: a built-in sample
// set and a loader for local text, markdown, and PDF files.
package corpus

import (
	"github.com/mfreitas/taxpilot/index"
)

// SampleDocuments returns the fixed tax-reform snippets used when no data
// directory is supplied.
func SampleDocuments() []index.SourceDocument {
	return []index.SourceDocument{
		{
			ExternalID: "1",
			Text:       "Brazil's tax reform was passed in 2023 and will roll out in phases starting in 2026, unifying several consumption taxes.",
		},
		{
			ExternalID: "2",
			Text:       "The main change is the replacement of taxes such as PIS, Cofins, IPI, ICMS, and ISS with two new ones: the Goods and Services Tax (IBS) and the Goods and Services Contribution (CBS).",
		},
		{
			ExternalID: "3",
			Text:       "The new model establishes a dual system in which the CBS is federal and the IBS is managed by states and municipalities, with collection centralized under a national steering committee.",
		},
		{
			ExternalID: "4",
			Text:       "The transition from the current system to the new model runs between 2026 and 2033, with both regimes coexisting for a set period.",
		},
		{
			ExternalID: "5",
			Text:       "The standard rate of the new taxes is still to be set by complementary law, but studies suggest it could land around 25% combining CBS and IBS.",
		},
		{
			ExternalID: "6",
			Text:       "The reform also introduces a tax cashback scheme for low-income families, returning part of the taxes paid on consumption.",
		},
	}
}
