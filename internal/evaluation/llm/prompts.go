package llm

import "fmt"

const cvPromptTemplate = `You are a technical recruiter evaluating a candidate's CV for a Backend Engineer position.

Evaluate the candidate based on the job description and the scoring rubric below.

### Rubric for CV Evaluation
1. Technical Skills Match (Weight: 40%%)
   - Backend, databases, APIs, cloud, AI/LLM exposure.
   - 1 = Irrelevant | 2 = Few overlaps | 3 = Partial match | 4 = Strong match | 5 = Excellent + AI/LLM exposure
2. Experience Level (Weight: 25%%)
   - Years of experience and project complexity.
   - 1 = <1 yr | 2 = 1-2 yrs | 3 = 2-3 yrs | 4 = 3-4 yrs solid | 5 = 5+ yrs / high-impact
3. Relevant Achievements (Weight: 20%%)
   - Impact, measurable results, scope of contributions.
   - 1 = None | 2 = Minimal | 3 = Some outcomes | 4 = Strong impact | 5 = Major measurable impact
4. Cultural / Collaboration Fit (Weight: 15%%)
   - Communication, learning attitude, teamwork.
   - 1 = Poor | 2 = Minimal | 3 = Average | 4 = Good | 5 = Excellent

### Job Context
%s

### Candidate CV
%s

### Output Instructions
- Compute weighted average (1-5), convert to 0-100, and report it as ` + "`cv_match_rate`" + `.
- Write concise feedback (up to 150 words) as ` + "`cv_feedback`" + `.
- Be objective, consistent, and avoid creative writing.
- Return ONLY valid JSON (no markdown, no comments).

Example output format:
{
  "cv_match_rate": 85.5,
  "cv_feedback": "The candidate demonstrates strong backend skills in FastAPI and solid experience, but lacks clear achievements in AI projects."
}
`

const projectPromptTemplate = `You are evaluating a candidate's technical project submission for a Backend Engineer role.

Assess the project based on the rubric below.

### Rubric for Project Evaluation
1. Correctness (Prompt Design & Chaining) (Weight: 30%%)
   - Implements prompt design, LLM chaining, and RAG context injection.
2. Code Quality & Structure (Weight: 25%%)
   - Clean, modular, reusable, tested.
3. Resilience & Error Handling (Weight: 20%%)
   - Handles retries, timeouts, randomness, and API failures gracefully.
4. Documentation & Explanation (Weight: 15%%)
   - README clarity, setup steps, trade-offs explained.
5. Creativity / Bonus (Weight: 10%%)
   - Extra features beyond requirements (authentication, dashboard, deployment, etc.)

### Case Study Context
%s

### Candidate Project Report
%s

### Output Instructions
- Compute weighted average (1-5), convert to 0-100, and report it as ` + "`project_score`" + `.
- Write concise feedback (up to 150 words) as ` + "`project_feedback`" + `.
- Return ONLY valid JSON (no markdown, no comments).

Example output format:
{
  "project_score": 92.0,
  "project_feedback": "Well-structured and resilient implementation. Demonstrates robust error handling and clear documentation."
}
`

const finalPromptTemplate = `You are an expert technical reviewer combining the candidate's CV and project evaluations.

### Your Task
- Analyze both results holistically.
- Provide:
  - ` + "`overall_summary`" + `: 3-5 sentences summarizing strengths, weaknesses, and recommendations.

### CV Evaluation Result
%s

### Project Evaluation Result
%s

### Output Instructions
- Be concise, factual, and consistent.
- Return ONLY valid JSON (no markdown, no commentary).

Example output format:
{
  "overall_summary": "The candidate has strong backend foundations and demonstrates solid implementation skills. Their project is technically sound, with clear documentation and resilience, though AI integration could be improved."
}
`

func buildCVPrompt(cvText, contextText string) string {
	return fmt.Sprintf(cvPromptTemplate, contextText, cvText)
}

func buildProjectPrompt(projectText, contextText string) string {
	return fmt.Sprintf(projectPromptTemplate, contextText, projectText)
}

func buildFinalPrompt(cvResult, projectResult string) string {
	return fmt.Sprintf(finalPromptTemplate, cvResult, projectResult)
}
