package stage

import (
	"context"
	"log/slog"

	"github.com/OptForgeAI/optforge-mvp/engine/domain"
	"github.com/OptForgeAI/optforge-mvp/engine/extract"
	"github.com/OptForgeAI/optforge-mvp/pkg/llm"
)

// DefaultOptimizeTemplate is the built-in optimize prompt. A file
// template passed on the command line overrides it.
const DefaultOptimizeTemplate = `Here are list of optimization strategies:
$analysis

Here is a summary of the source code to help you understand it:
$summary

Now optimize the following C++ code by applying the above optimization strategies one by one.

For each step:
1. State which optimization strategy is applied.
2. Explain why this optimization improves performance.
3. Explain why this modification does not change the logical behavior of the program (provide a brief reasoning or input/output comparison).
4. Output the complete optimized C++ code after applying this step. Always output a full, independently compilable program.

Important constraints:
- The optimized code must preserve the original functionality and logic exactly.
- If an optimization risks breaking correctness or changing behavior, skip it and explain why.
- Always include required headers and ensure all macros are properly defined.
- Each intermediate code must be syntactically correct and compilable.

At the final step:
- Combine all valid optimizations into one complete program.
- Double-check and explicitly confirm that the final code is logically equivalent to the original.
- Ensure the final code includes ` + "`#include <bits/stdc++.h>`" + ` and all macros are correctly defined.

Here is the original source code:
$src_code
`

// Optimize generates optimized code for each record by combining its
// matched strategies (the analysis field), the line-aligned summary
// from the side file, and the original source. It adds summary,
// prompt, completion, and generated_answers to every record. A length
// mismatch between records and summaries is a configuration error
// raised before any service call.
func (c Config) Optimize(ctx context.Context, records, summaries []domain.Record, tmpl *Template) ([]domain.Record, error) {
	if err := domain.ValidateAligned("match records", len(records), "summaries", len(summaries)); err != nil {
		return nil, err
	}
	slog.Info("optimize stage starting", "records", len(records), "model", c.Model)

	prompts := make([]string, len(records))
	sums := make([]string, len(records))
	for i, rec := range records {
		if summaries[i].Summary != nil {
			sums[i] = *summaries[i].Summary
		}
		prompts[i] = tmpl.Render(map[string]string{
			"analysis": extract.CodeBlock(rec.AnalysisText()),
			"summary":  sums[i],
			"src_code": rec.SrcCode,
		})
	}

	out := c.chatBatch(ctx, "optimize", len(records), func(i int) (llm.Request, bool) {
		return llm.Request{
			Model:       c.Model,
			Temperature: 0.7,
			Messages:    []llm.Message{{Role: "user", Content: prompts[i]}},
		}, true
	})

	result := make([]domain.Record, len(records))
	for i, o := range out {
		rec := records[i]
		rec.SetSummary(sums[i])
		rec.SetPrompt(prompts[i])
		if o.Failed() {
			rec.SetCompletion("Error: " + o.Err.Error())
			rec.GeneratedAnswers = []string{}
		} else {
			rec.SetCompletion(o.Value)
			rec.GeneratedAnswers = []string{extract.CodeBlock(o.Value)}
		}
		result[i] = rec
	}
	slog.Info("optimize stage done", "records", len(result))
	return result, nil
}
