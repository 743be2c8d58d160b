package webhook

// activitySchema describes the inbound activity accepted on the messages endpoint.
const activitySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "channelId", "conversation", "from"],
  "properties": {
    "id": {"type": "string"},
    "type": {"type": "string", "minLength": 1},
    "channelId": {"type": "string", "minLength": 1},
    "conversation": {
      "type": "object",
      "required": ["id"],
      "properties": {"id": {"type": "string", "minLength": 1}}
    },
    "from": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "name": {"type": "string"}
      }
    },
    "recipient": {
      "type": "object",
      "properties": {
        "id": {"type": "string"},
        "name": {"type": "string"}
      }
    },
    "text": {"type": "string", "maxLength": 4096},
    "membersAdded": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {"id": {"type": "string"}}
      }
    }
  }
}`
