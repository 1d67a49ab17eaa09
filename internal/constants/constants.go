package constants

const VERSION = "0.3.0"
const USER_AGENT = "eliteseller-gateway/" + VERSION
