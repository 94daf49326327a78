// Package upstream talks to a single hosted chat-completion deployment.
//
// A Client posts one user message per call to
//
//	{endpoint}/openai/deployments/{deployment}/chat/completions?api-version={version}
//
// with the key in the "api-key" header, and classifies the outcome:
//
//   - *StatusError: the deployment answered with a non-2xx status
//   - *MalformedResponseError: a 2xx JSON body without choices[0].message.content
//   - *DecodeError: a 2xx body that is not valid JSON
//   - *TransportError: the deployment could not be reached or ctx ended
//
// There are no retries. Callers bound each call through ctx.
package upstream
