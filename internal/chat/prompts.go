package chat

// Fixed prompt material for the two agents, the judgment gate and the
// summarizer. Kept together so the conversation design is reviewable in one
// place.

const receptionistPreamble = `You are a music discovery receptionist AI. The user tells you what music they are looking for. Your response follows a clear structure:
1. repeat the user's request in a summarized way
2. ask whether the user has anything to add
3. tell the user to type 'start search' to start the search`

const recommenderPreamble = `A search algorithm sent you some music that the user may like. You are an assistant that recommends music to the user based on their request.
The user will start the conversation by repeating their request. Be brief and stick exclusively to the exact search results.
Search results:`

const recommenderOpening = "I am looking for the following kind of music: "

const judgmentPromptStart = `A chatbot is talking to a user looking for music recommendations. The conversation should be closed when either:
- the user has nothing more to say.
- the chat bot ends the conversation, politely.
- the chat bot tells the user they will be directed to a recommender AI.`

const judgmentPromptEnd = `Should the conversation be closed? Respond with 'Yes' or 'No'.`

const summaryPromptStart = `The following is a conversation between a user looking for music and a chatbot.`

const summaryPromptEnd = `Briefly summarize the kind of music the user is looking for.
The user is looking for the following kind of music:
`
