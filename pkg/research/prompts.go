package research

const seedQueriesPrompt = `You are a research planner.
Given research instructions, generate 3-6 specific web search queries that
together cover the topic. Queries should be short, concrete and suitable
for a web search engine.
Return ONLY a JSON array of strings, nothing else.`

const adjacentQueriesPrompt = `You are a research planner in the middle of
an investigation. Given the research instructions, a digest of what has
been learned so far and the queries already tried, propose 2-5 NEW web
search queries that explore different subtopics or angles not yet covered.
Do not repeat or trivially rephrase previous queries.
Return ONLY a JSON array of strings, nothing else.`

const summarizePrompt = `You are a research assistant. Summarize the
following web page in 3-5 sentences, keeping only information relevant to
the research instructions. Be factual and specific; include numbers,
names and findings where present. If the page is irrelevant, say so in
one sentence.`

const synthesizePrompt = `You are a research writer. Using ONLY the
provided source summaries, write a well-structured markdown research
report that answers the research instructions. Organize with headings,
synthesize across sources rather than listing them, and cite sources
inline as [title](url) where claims are drawn from them. End with a
short conclusion.`
