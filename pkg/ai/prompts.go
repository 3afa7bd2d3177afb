package ai

const ExtractPrompt = `
# Task Context
You are tasked with extracting **structured entity and relationship information** from the provided article text. The process must capture **all details explicitly present in the text**, without omission.

# Background Data
- **Entity_types:** [%s]
- **Article_title:** [%s]

The article title may contain hints about the primary entity. Use it only if the text itself does not clearly specify an entity.

# Detailed Task Description & Rules

## Entity Extraction
1. Identify all entities of the specified types [%s].
2. For each entity, extract:
   - **entity_name:** The name of the entity, written in **ALL CAPITAL LETTERS**.
   - **entity_type:** One of the provided types [%s].
   - **entity_description:** A comprehensive description of all attributes, roles, activities, events, timelines, frequencies, or other explicit details in the text.
     - Do **not** omit any explicit information.

## Relationship Extraction
1. From the identified entities, determine all clear relationships between pairs of entities.
2. For each relationship, extract:
   - **source_entity:** name of the source entity.
   - **target_entity:** name of the target entity.
   - **relationship_description:** detailed explanation of how and why the entities are related, based strictly on the text.
3. Only report relationships between two **different** entities that both appear in your entity list.
4. If the text mentions no relationships, return an **empty array** for "relationships".

# Examples
**Entity_types:** organization, person
**Text:**
The Verdantis Central Institution is scheduled to meet on Monday and Thursday.
The institution will release its latest policy decision on Thursday at 1:30 p.m. PDT, followed by a press conference where Central Institution Chair Martin Smith will take questions.

**Output:**
{
  "entities": [
    {
      "entity_name": "VERDANTIS CENTRAL INSTITUTION",
      "entity_type": "organization",
      "entity_description": "The Verdantis Central Institution is an organization that meets on Mondays and Thursdays, issues policy decisions including one scheduled for Thursday at 1:30 p.m. PDT, and hosts press conferences after policy releases."
    },
    {
      "entity_name": "MARTIN SMITH",
      "entity_type": "person",
      "entity_description": "Martin Smith is the Chair of the Verdantis Central Institution and is scheduled to answer questions at a press conference following the Thursday policy release."
    }
  ],
  "relationships": [
    {
      "source_entity": "MARTIN SMITH",
      "target_entity": "VERDANTIS CENTRAL INSTITUTION",
      "relationship_description": "Martin Smith serves as the Chair of the Verdantis Central Institution and represents the institution in public press conferences."
    }
  ]
}

# Thinking Step by Step
Think step-by-step and extract all entities and relationships as specified.

# Output Formatting
The output must be a single valid JSON object in this structure:
{
  "entities": [
    {
      "entity_name": "string",
      "entity_type": "string",
      "entity_description": "string"
    }
  ],
  "relationships": [
    {
      "source_entity": "string",
      "target_entity": "string",
      "relationship_description": "string"
    }
  ]
}
Do not include any commentary, explanations, or text outside of the JSON.
Always return valid JSON, even if no entities or relationships are found (use empty arrays in that case).
Make sure to follow the rules and output format carefully.
`

const CommunitySummaryPrompt = `
# Task Context
You are a highly detail-oriented assistant responsible for summarizing one community of a knowledge graph: a group of related entities and the relationships that connect them.

# Background Data
-- Data --
%s

# Detailed Task Description & Rules
- The input lists the entities of the community with their descriptions, followed by the relationships between them.
- Write one unified summary of what this community is about: its main subjects, how they connect, and the most important facts attached to them.
- Only use the information given. Do not infer, assume, or add external knowledge.
- Use third person at all times and explicitly include entity names to preserve full context.
- The summary must be short and compact: two to three clear sentences.

# Output Formatting
- Return plain text only. Do not use markdown, lists, bullet points, or meta-comments.
- Do not add introductions, explanations, or closing remarks. Output only the final summary.
`

const MapAnswerPrompt = `
# Task Context
You are part of a map-reduce pipeline that answers a question over a corpus of articles. You receive the summary of ONE community of related entities and must judge how much that community contributes to answering the question.

# Background Data
- **Question:** %s
- **Community summary:**
%s

# Detailed Task Description & Rules
- Write a partial answer to the question using ONLY the information in the community summary.
- Score how relevant this community is to the question on a scale from 0 to 100:
  * 0 means the community contains nothing useful for the question.
  * 100 means the community directly and completely addresses the question.
- If the summary contains nothing relevant, return an empty answer and a score of 0.
- Do not add information that is not present in the summary.

# Output Formatting
Return a single valid JSON object in this structure:
{
  "answer": "string",
  "relevance_score": 0
}
Do not include any commentary, explanations, or text outside of the JSON.
`

const ReduceAnswerPrompt = `
# Task Context
You are the reduce step of a map-reduce pipeline that answers a question over a corpus of articles. You receive partial answers produced from different communities of a knowledge graph, each tagged with the id of the community it came from.

# Background Data
The data is provided in the following format:

Partial Answers:
<community_id>: <partial answer>
<community_id>: <partial answer>

## Data
%s

# Detailed Task Description & Rules
- Combine the partial answers into one comprehensive answer to the question.
- Resolve overlaps; when partial answers contradict each other, present both versions and state that they are contradictory.
- Do not add any information that is not present in the partial answers.
- Every factual statement must end with one or more community ids, in the format [[id]].
- A statement may have multiple sources: [[id]] [[id]].
- Never include anything except the actual id inside the brackets, and never invent ids.
- If no partial answer applies to a statement, do not include that statement.

# Immediate Task Description or Request
Question: %s

# Output Formatting
- Return only the direct answer (no introduction or concluding summary).
- Format your answer in Markdown.
- Always respond in the same language as the question.
`

const LocalAnswerPrompt = `
# Task Context
You are a helpful assistant that provides high-quality answers based only on the provided data retrieved from a knowledge graph over a corpus of articles.

# Background Data
The data is provided in the following format:

Relevant Chunks:
<chunk_id>: <text>

Relevant Entities:
<entity_name>,<entity_id>: <description>

Connecting Relationships:
<entity_name<->entity_name>: <description>

## Data
%s

# Detailed Task Description & Rules
- Do not add any information that is not present in the provided data.
- **Text Content over Graph Structure:** Always derive your answer from the text provided in the data, not from the count or existence of ids.
- **Never leak internal ids as content:** ids are citation handles, not facts. When referencing an entity, use its name.
- Every factual statement must end with one or more source ids, in the format [[id]].
- A statement may have multiple sources: [[id]] [[id]].
- Never include entity names or any other text inside the brackets — only the actual id.
- Never leave a placeholder [[id]]. Always replace with actual ids.
- Use chunk ids when citing chunk text and entity ids when citing entity descriptions.
- If contradictory information exists in the provided data, present all contradictory statements explicitly and state that they are contradictory.
- If no source id applies to a statement, do not include that statement.
- If you cannot find an answer in the data, respond with: "I don't know." in the language of the question.

# Immediate Task Description or Request
Question: %s

# Output Formatting
- Return only the direct answer (no introduction or concluding summary).
- Format your answer in Markdown.
- Always respond in the same language as the question.
`
