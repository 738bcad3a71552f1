package core

// prompts.go holds the text sent to the model and the fixed disclaimers.

const (
	// SystemPrompt asks for informational guidance in the four-section
	// (A)-(D) format that ParseSections understands.
	SystemPrompt = `You are a medical assistant chatbot that provides informational medical guidance.
Your role is to help users understand their symptoms and provide general health information.

IMPORTANT GUIDELINES:
1. You are NOT a replacement for professional medical advice. Always emphasize consulting healthcare professionals.
2. Provide information that is educational and informative, not diagnostic.
3. Be clear about limitations and when professional medical attention is required.
4. Consider age-appropriate recommendations for medications and treatments.
5. Provide responses in the structured format requested.

RESPONSE FORMAT:
(A) Brief Summary of the Symptoms
(B) Home Care Recommendations (age-appropriate)
(C) When to Seek Medical Attention (be specific about emergencies)
(D) Possible Causes (possibilities, not diagnoses)`

	// LanguageInstruction is appended to SystemPrompt for non-English replies.
	LanguageInstruction = "\n\nIMPORTANT: Provide all responses in %s language."

	// SymptomPrompt is filled with the age group and the reported symptoms.
	SymptomPrompt = `User Age Group: %s
User Reported Symptoms: %s

Please provide medical guidance in the following structured format:

(A) Brief Summary of the Symptoms
(B) Home Care Recommendations (age-appropriate)
(C) When to Seek Medical Attention
(D) Possible Causes

Remember to:
- Consider the age group when recommending medications or treatments
- Provide age-appropriate dosage information if suggesting any medications
- Emphasize when professional medical consultation is necessary`

	// HistoryHeader precedes the previous turns included as context.
	HistoryHeader = "Previous conversation context:\n"

	// TranslationSystemPrompt instructs the model to translate a serialized
	// conversation and answer with a strict JSON array.
	TranslationSystemPrompt = `You are a professional translator specialized in medical conversations.
Translate the following conversation into the requested language while preserving exact medical meaning, dosages, warnings, structure, and any disclaimers.
Do NOT add, remove, or change medical guidance; only translate.
Return a strict JSON array where each element is an object: {"index": <index>, "role": "user|assistant", "content": "translated text"}.
If a message contains structured lists or sections, preserve their formatting in the translated text.`

	// TranslationPrompt is filled with the target language and the
	// serialized conversation.
	TranslationPrompt = "Target Language: %s\n\nConversation:\n%s\n\nReturn only a JSON array as described above."

	// TranslationDelimiter separates serialized messages.
	TranslationDelimiter = "---"
)

// disclaimers maps language codes to the fixed disclaimer text. Codes missing
// here fall back to English.
var disclaimers = map[string]string{
	"english": "⚠️ IMPORTANT DISCLAIMER: This information is for informational purposes only and does not constitute medical advice, diagnosis, or treatment. Always consult with a qualified healthcare professional for proper medical evaluation and treatment. Do not delay seeking professional medical advice because of information received from this chatbot.",
	"hindi":   "⚠️ महत्वपूर्ण अस्वीकरण: यह जानकारी केवल सूचनात्मक उद्देश्यों के लिए है और चिकित्सा सलाह, निदान या उपचार का गठन नहीं करती है। उचित चिकित्सा मूल्यांकन और उपचार के लिए हमेशा एक योग्य स्वास्थ्य देखभाल पेशेवर से परामर्श करें।",
	"bengali": "⚠️ গুরুত্বপূর্ণ অস্বীকার: এই তথ্য শুধুমাত্র তথ্যগত উদ্দেশ্যে এবং চিকিৎসা পরামর্শ, রোগ নির্ণয় বা চিকিৎসা গঠন করে না। সঠিক চিকিৎসা মূল্যায়ন এবং চিকিৎসার জন্য সর্বদা একজন যোগ্য স্বাস্থ্যসেবা পেশাদারের সাথে পরামর্শ করুন।",
	"telugu":  "⚠️ ముఖ్యమైన నిరాకరణ: ఈ సమాచారం సమాచార ప్రయోజనాల కోసం మాత్రమే మరియు వైద్య సలహా, రోగ నిర్ధారణ లేదా చికిత్సను ఏర్పరచదు. సరైన వైద్య మూల్యాంకనం మరియు చికిత్స కోసం ఎల్లప్పుడూ అర్హత కలిగిన ఆరోగ్య సంరక్షణ నిపుణుడిని సంప్రదించండి.",
	"tamil":   "⚠️ முக்கியமான மறுப்பு: இந்த தகவல் தகவல் நோக்கங்களுக்காக மட்டுமே மற்றும் மருத்துவ ஆலோசனை, நோயறிதல் அல்லது சிகிச்சையை உருவாக்காது. சரியான மருத்துவ மதிப்பீடு மற்றும் சிகிச்சைக்காக எப்போதும் தகுதிவாய்ந்த சுகாதார பராமரிப்பு நிபுணரைக் கலந்தாலோசிக்கவும்.",
	"marathi": "⚠️ महत्त्वाचे नकार: ही माहिती केवळ माहितीच्या हेतूसाठी आहे आणि वैद्यकीय सल्ला, निदान किंवा उपचार तयार करत नाही. योग्य वैद्यकीय मूल्यांकन आणि उपचारासाठी नेहमी पात्र आरोग्य सेवा व्यावसायिकांशी सल्लामसलत करा.",
}
