/*
The package sds implements the SDS handling of the TetraLogic engine: decoding the +CTSDSR header and
the PDU line that follows it, encoding outgoing messages into AT+CMGS command sequences, and the queue
that hands one outgoing message at a time to the radio and tracks its delivery.

This implementation is based on:
  [AI]  ETSI TS 100 392-2 V3.9.2 (2020-06)
  [PEI] ETSI EN 300 392-5 V2.7.1 (2020-04)
  [LIP] ETSI TS 100 392-18-1

The most relevant chapters in [AI] are 29 (SDS-TL Protocol) and 14 (CMCE Protocol).

Abbreviations:
PDU: Protocol Data Unit
SDU: Service Data Unit
LIP: Location Information Protocol

Restrictions:
Store/forward control information and concatenated SDS are not supported.
*/
package sds
