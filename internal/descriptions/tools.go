package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	PDFAnswerKeyAnnotateDescription = `Turn a color-coded quiz PDF into a student copy with an answer key footer.

**When to use:** A worksheet or exam marks each question number in red and its answer in green, and you need a copy where the colored text no longer stands out and every page carries a small question/answer table.

**How it works:** Red and green text runs are paired in reading order. Every rg fill color operator on the page is set to black, whatever its color; stroke colors (RG) are only rewritten when the server runs with --stroke. The pairs are rendered as a compact table image in the page footer, at the bottom right on odd page numbers and the bottom left on even ones.

**Examples:**
• Whole document: "Annotate quiz-week3.pdf" writes quiz-week3.answerkey.pdf next to it
• Custom output: "Annotate exam.pdf into exam-student.pdf"
• Selected pages: "Annotate pages 2-4 of workbook.pdf" using pages "2-4"

**Parameters:**
• path: PDF inside the configured directory
• output: optional output file, defaults to <name>.answerkey.pdf
• pages: optional selection such as "1-3,5,8-"; unselected pages are copied unchanged

**Best practices:** Run pdf_answer_key_extract first to check that the pairs are detected as expected. Pages without pairs are still recolored and reported as EMPTY_EXTRACTION.`

	PDFAnswerKeyExtractDescription = `List the question/answer pairs of a color-coded PDF without modifying it.

**When to use:** Preview what pdf_answer_key_annotate would put in the footer, or harvest the answer key of a quiz as data.

**Examples:**
• Preview: "Which answers are marked in quiz-week3.pdf?"
• Single page: "Extract the answer key of page 7 of exam.pdf" using pages "7"

**Parameters:**
• path: PDF inside the configured directory
• pages: optional page selection

**Best practices:** Questions are red text (0xFF0000) and answers green text (0x00B050) within a small color tolerance. When a page reports no pairs, check the colors the document actually uses.`

	PDFValidateFileDescription = `Verify PDF file integrity and readability before processing.

**When to use:** Before annotating or extracting, especially in automated workflows or when handling user uploads.

**Examples:**
• Upload verification: "Check that uploaded-quiz.pdf is a readable PDF"
• Batch safety: "Validate every worksheet before generating answer keys"

**Best practices:** Reports the page count of valid files; run it first when a document fails to annotate.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"pdf_answer_key_annotate": PDFAnswerKeyAnnotateDescription,
	"pdf_answer_key_extract":  PDFAnswerKeyExtractDescription,
	"pdf_validate_file":       PDFValidateFileDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted names of all described tools
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
