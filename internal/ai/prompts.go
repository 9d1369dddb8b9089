package ai

const headerMappingPrompt = `
You map spreadsheet column headers of a Brazilian logistics company to import fields.

### FIELDS
%s

### UNRECOGNISED HEADERS
%s

### SAMPLE ROWS
%s

### OUTPUT FORMAT
Return only a JSON object whose keys are unrecognised headers, copied exactly,
and whose values are field names from the list above. Leave out any header you
are not confident about. Never map two headers to the same field.
`
