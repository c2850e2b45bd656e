package agent

// InputPlaceholder marks where a step's input is spliced into its template.
const InputPlaceholder = "{{input}}"

var defaultTemplates = map[StepName]string{
	StepResearch: `
You are a Research Expert. Your task is to analyze the market and user landscape for the following product idea:

"{{input}}"

Provide:
- A summary of the target audience and user pain points
- Competitive analysis
- Key trends and opportunities

Return your response in clear, markdown-formatted text.
`,
	StepFeatures: `
You are a Product Feature Analyst.

Given this research summary:

{{input}}

Extract and list:
- Core features the product must have
- Any optional or innovative features
- User flow or UX implications

Return in structured markdown format with headings.
`,
	StepArchitecture: `
You are a Systems Architect.

Given the following product features:

{{input}}

Design a scalable system architecture. Include:
- Major components (frontend, backend, databases, APIs, etc.)
- Key interactions and responsibilities

Do NOT provide a Mermaid.js diagram or any diagram. Only return a clear, structured explanation of the architecture in markdown text.
`,
	StepTechStack: `
You are a Tech Stack Strategist.

Given the following system architecture plan:

{{input}}

Recommend:
- Programming languages
- Frameworks/libraries (frontend & backend)
- Database(s)
- DevOps tools
- Any LLM or vector DBs if needed

Output your answer as clear, concise bullet points grouped by component type. Do NOT use tables or markdown tables. Use plain markdown lists for each group, with bolded group headings. Example:

**Frontend Recommendations:**
- Framework: React.js
- Libraries: Axios, Redux, React Router

**Backend Recommendations:**
- Language: Node.js
- Framework: Express.js
- Libraries: JWT, Swagger

**Database Recommendations:**
- Relational: PostgreSQL
- NoSQL: MongoDB
- Caching: Redis

`,
	StepSecurity: `
You are a Security & Infrastructure Specialist.

Based on this architecture plan:

{{input}}

Provide:
- Security best practices for each component
- Infrastructure guidelines (cloud, CI/CD, scaling, observability)

Return your response in a markdown list format.
`,
}

// DefaultTemplate returns the built-in prompt template for name.
func DefaultTemplate(name StepName) string {
	return defaultTemplates[name]
}
